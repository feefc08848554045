package models

import (
	"encoding/json"
	"time"
)

// TransactionRecord is one row of the remote token ledger. The remote-issued
// ID is the global idempotency key: once inserted, a record is immutable and
// re-ingestion of the same ID is a no-op.
type TransactionRecord struct {
	ID           int64     `db:"id"`
	RemoteUID    int64     `db:"remote_uid"`
	AccountEmail string    `db:"account_email"`
	Tokens       int64     `db:"tokens"`
	Source       string    `db:"source"`
	Remark       string    `db:"remark"`
	OriginIP     *string   `db:"origin_ip"`
	RemoteTime   time.Time `db:"remote_time"`
	APIID        int64     `db:"api_id"`
	CreatedAt    time.Time `db:"created_at"`
}

// ParseOriginIP extracts the origin IP from the opaque remark field when the
// remark embeds a JSON fragment with provenance. A non-JSON remark is fine.
func (r *TransactionRecord) ParseOriginIP() {
	if r.Remark == "" {
		return
	}
	var provenance struct {
		IP string `json:"ip"`
	}
	if err := json.Unmarshal([]byte(r.Remark), &provenance); err != nil {
		return
	}
	if provenance.IP != "" {
		r.OriginIP = &provenance.IP
	}
}

// AccountRemoteMapping links a remote numeric account id to the local
// account email. Refreshed on every ledger sync.
type AccountRemoteMapping struct {
	RemoteUID  int64     `db:"remote_uid"`
	Email      string    `db:"email"`
	LastUpdate time.Time `db:"last_update"`
}
