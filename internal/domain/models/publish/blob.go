package publish

import "time"

// ContentBlob is the index row for one content-addressed object of a tenant.
type ContentBlob struct {
	TenantID   string    `json:"tenant_id" db:"tenant_id"`
	Hash       string    `json:"hash" db:"hash"`
	Key        string    `json:"key" db:"key"`
	Size       int64     `json:"size" db:"size"`
	RefCount   int       `json:"ref_count" db:"ref_count"`
	LastUsedAt time.Time `json:"last_used_at" db:"last_used_at"`
	CreatedAt  time.Time `json:"created_at" db:"created_at"`
}

// BlobRef is the result of storing bytes in the blob store.
type BlobRef struct {
	Hash  string `json:"hash"`
	Key   string `json:"key"`
	Size  int64  `json:"size"`
	IsNew bool   `json:"isNew"`
}
