// Package repomanager vends repository implementations bound to a
// database handle. Services ask the manager for repositories bound to
// either the pool (*sql.DB) or a transaction (*sql.Tx), which is how
// the revoke+insert rotation pair ends up inside one atomic unit.
package repomanager

import (
	"context"
	"database/sql"

	"github.com/dmitrijs2005/sessionkeeper/internal/dbx"
	"github.com/dmitrijs2005/sessionkeeper/internal/server/repositories/refreshtokens"
	"github.com/dmitrijs2005/sessionkeeper/internal/server/repositories/users"
)

type RepositoryManager interface {
	RunMigrations(context.Context, *sql.DB) error
	Users(db dbx.DBTX) users.Repository
	RefreshTokens(db dbx.DBTX) refreshtokens.Repository
}
