package service

import (
	"time"
)

// Locator strategy sets for each logical UI target. Rules are tried in
// order; the first non-nil match wins. The lists mirror the markup variants
// the remote service has shipped over time.
var (
	loginEmailLocators = []Selector{
		{By: SelectorCSS, Expr: `input[type="email"]`},
		{By: SelectorXPath, Expr: `//input[@placeholder="请输入邮箱"]`},
		{By: SelectorCSS, Expr: `input[placeholder*="email" i]`},
	}

	loginPasswordLocators = []Selector{
		{By: SelectorCSS, Expr: `input[type="password"]`},
	}

	loginSubmitLocators = []Selector{
		{By: SelectorCSS, Expr: `button[type="submit"]`},
		{By: SelectorXPath, Expr: `//button[contains(., "登录") or contains(., "Login")]`},
		{By: SelectorCSS, Expr: `button.ant-btn-primary`},
	}

	actionButtonLocators = []Selector{
		{By: SelectorXPath, Expr: `//button[contains(., "签到") and not(contains(., "今天已签到"))]`},
	}

	alreadyDoneLocators = []Selector{
		{By: SelectorXPath, Expr: `//button[contains(., "今天已签到")]`},
	}

	balanceLocators = []Selector{
		{By: SelectorCSS, Expr: `[class*="token"]`},
		{By: SelectorCSS, Expr: `[class*="point"]`},
	}

	nextPageLocators = []Selector{
		{By: SelectorXPath, Expr: `//li[@title="下一页"]/button[not(@disabled)]`},
		{By: SelectorXPath, Expr: `//button[@aria-label="Next Page" and not(@disabled)]`},
		{By: SelectorCSS, Expr: `.ant-pagination-next:not(.ant-pagination-disabled)`},
	}

	pageSizeDropdownLocators = []Selector{
		{By: SelectorCSS, Expr: `.ant-select.ant-pagination-options-size-changer`},
		{By: SelectorCSS, Expr: `.ant-pagination-options-size-changer .ant-select-selector`},
	}

	pageSizeWideOptionLocators = []Selector{
		{By: SelectorCSS, Expr: `div.ant-select-item[title="100 条/页"]`},
		{By: SelectorXPath, Expr: `//div[contains(@class, "ant-select-item")][contains(., "100")]`},
	}
)

// locateFirst tries each strategy in order and returns the first match.
// Exhausting the list is a classified ElementNotFoundError, not an exception.
func locateFirst(session Session, target string, strategies []Selector, timeout time.Duration) (Element, error) {
	for _, sel := range strategies {
		el, err := session.Locate(sel, timeout)
		if err != nil {
			return nil, err
		}
		if el != nil {
			return el, nil
		}
	}
	return nil, &ElementNotFoundError{Target: target}
}

// locateAny is locateFirst for optional targets: exhaustion returns
// (nil, nil) so absence can be a normal condition, e.g. pagination end.
func locateAny(session Session, strategies []Selector, timeout time.Duration) (Element, error) {
	for _, sel := range strategies {
		el, err := session.Locate(sel, timeout)
		if err != nil {
			return nil, err
		}
		if el != nil {
			return el, nil
		}
	}
	return nil, nil
}
