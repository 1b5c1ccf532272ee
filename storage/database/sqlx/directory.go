package sqlxrepos

import (
	"context"

	"github.com/lib/pq"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/campus/core"
	"github.com/trezcool/campus/core/notification"
)

type directoryRepository struct {
	exec core.DBExecutor
}

var _ notification.Directory = (*directoryRepository)(nil) // interface compliance check

func NewDirectoryRepository(exec core.DBExecutor) *directoryRepository {
	return &directoryRepository{exec: exec}
}

func (repo directoryRepository) Contacts(ctx context.Context, roles []string) ([]notification.Contact, error) {
	q := `SELECT id, name, email, phone, role FROM directory_contact WHERE active`
	var args []interface{}
	if len(roles) > 0 {
		normalized := make([]string, 0, len(roles))
		for _, r := range roles {
			normalized = append(normalized, core.NormalizeRole(r))
		}
		q += " AND role = ANY($1)"
		args = append(args, pq.Array(normalized))
	}
	q += " ORDER BY name, id"

	var rows []struct {
		ID    string      `db:"id"`
		Name  string      `db:"name"`
		Email null.String `db:"email"`
		Phone null.String `db:"phone"`
		Role  string      `db:"role"`
	}
	if err := repo.exec.SelectContext(ctx, &rows, q, args...); err != nil {
		return nil, errors.Wrap(err, "querying directory contacts")
	}

	contacts := make([]notification.Contact, 0, len(rows))
	for _, r := range rows {
		contacts = append(contacts, notification.Contact{
			ID:    r.ID,
			Name:  r.Name,
			Email: r.Email.String,
			Phone: r.Phone.String,
			Role:  r.Role,
		})
	}
	return contacts, nil
}
