package ptr

import "github.com/jackc/pgx/v5/pgtype"

func StringFromPgtype(pt pgtype.Text) *string {
	if !pt.Valid {
		return nil
	}
	return &pt.String
}
