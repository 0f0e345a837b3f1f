package model

// User holds the local profile for an authenticated principal (identity itself
// lives in firebase)
type User struct {
	Id          string `db:"firebase_id" json:"id"`
	DisplayName string `db:"display_name" json:"displayName"`
	IsAdmin     bool   `db:"is_admin" json:"isAdmin"`
	Avatar      string `db:"avatar" json:"avatar"`
}
