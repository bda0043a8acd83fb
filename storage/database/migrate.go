package database

import (
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
)

// Migrate creates the schema if needed and applies the additive column
// migrations. It is idempotent and runs on every boot.
func Migrate(db *sqlx.DB, engine string) error {
	if engine == "sqlite3" {
		engine = engineSQLite
	}

	serial := "INTEGER PRIMARY KEY AUTOINCREMENT"
	if engine == enginePostgres {
		serial = "BIGSERIAL PRIMARY KEY"
	}

	stmts := []string{
		`CREATE TABLE IF NOT EXISTS users (
			id ` + serial + `,
			nome TEXT NOT NULL,
			email TEXT NOT NULL UNIQUE,
			matricula TEXT NOT NULL UNIQUE,
			telefone TEXT NOT NULL DEFAULT '',
			username TEXT NOT NULL DEFAULT '',
			senha_hash TEXT NOT NULL,
			created_at TIMESTAMP NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS user_progress (
			id ` + serial + `,
			user_id BIGINT NOT NULL REFERENCES users(id),
			module_id INTEGER NOT NULL,
			lesson_id INTEGER NOT NULL,
			lesson_title TEXT NOT NULL,
			video_completed BOOLEAN NOT NULL DEFAULT FALSE,
			exercise_completed BOOLEAN NOT NULL DEFAULT FALSE,
			practical_completed BOOLEAN NOT NULL DEFAULT FALSE,
			completed BOOLEAN NOT NULL DEFAULT FALSE,
			completed_at TIMESTAMP,
			updated_at TIMESTAMP NOT NULL
		)`,
		`CREATE UNIQUE INDEX IF NOT EXISTS user_progress_user_lesson_idx
			ON user_progress (user_id, lesson_id)`,
		`CREATE TABLE IF NOT EXISTS exercise_attempts (
			id ` + serial + `,
			user_id BIGINT NOT NULL REFERENCES users(id),
			lesson_id INTEGER NOT NULL,
			lesson_title TEXT NOT NULL,
			score INTEGER NOT NULL,
			total_questions INTEGER NOT NULL,
			percentage INTEGER NOT NULL,
			is_first_attempt BOOLEAN NOT NULL DEFAULT FALSE,
			created_at TIMESTAMP NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS exercise_attempts_user_lesson_idx
			ON exercise_attempts (user_id, lesson_id)`,
		`CREATE TABLE IF NOT EXISTS user_scores (
			id ` + serial + `,
			user_id BIGINT NOT NULL REFERENCES users(id),
			score_type TEXT NOT NULL,
			source_id TEXT NOT NULL,
			points INTEGER NOT NULL,
			created_at TIMESTAMP NOT NULL
		)`,
		`CREATE UNIQUE INDEX IF NOT EXISTS user_scores_user_type_source_idx
			ON user_scores (user_id, score_type, source_id)`,
		`CREATE TABLE IF NOT EXISTS exercise_states (
			id ` + serial + `,
			user_id BIGINT NOT NULL REFERENCES users(id),
			lesson_id INTEGER NOT NULL,
			lesson_title TEXT NOT NULL,
			is_completed BOOLEAN NOT NULL DEFAULT FALSE,
			score INTEGER NOT NULL DEFAULT 0,
			total_questions INTEGER NOT NULL DEFAULT 0,
			percentage INTEGER NOT NULL DEFAULT 0,
			points_awarded INTEGER NOT NULL DEFAULT 0,
			is_first_attempt BOOLEAN NOT NULL DEFAULT FALSE,
			feedback_data BLOB,
			created_at TIMESTAMP NOT NULL,
			updated_at TIMESTAMP NOT NULL
		)`,
		`CREATE UNIQUE INDEX IF NOT EXISTS exercise_states_user_lesson_idx
			ON exercise_states (user_id, lesson_id)`,
		`CREATE TABLE IF NOT EXISTS forum_topics (
			id ` + serial + `,
			user_id BIGINT NOT NULL REFERENCES users(id),
			title TEXT NOT NULL,
			content TEXT NOT NULL,
			category TEXT NOT NULL DEFAULT '',
			created_at TIMESTAMP NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS forum_replies (
			id ` + serial + `,
			topic_id BIGINT NOT NULL REFERENCES forum_topics(id),
			user_id BIGINT NOT NULL REFERENCES users(id),
			content TEXT NOT NULL,
			created_at TIMESTAMP NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS forum_replies_topic_idx ON forum_replies (topic_id)`,
	}
	for _, stmt := range stmts {
		if engine == enginePostgres {
			// postgres has no BLOB type
			stmt = strings.Replace(stmt, "feedback_data BLOB", "feedback_data BYTEA", 1)
		}
		if _, err := db.Exec(stmt); err != nil {
			return errors.Wrap(err, "migrating database")
		}
	}

	// Older deployments predate the derived completion columns; add them in
	// place rather than rebuilding the table.
	for _, col := range []struct{ name, ddl string }{
		{"completed", "ALTER TABLE user_progress ADD COLUMN completed BOOLEAN NOT NULL DEFAULT FALSE"},
		{"completed_at", "ALTER TABLE user_progress ADD COLUMN completed_at TIMESTAMP"},
	} {
		ok, err := hasColumn(db, engine, "user_progress", col.name)
		if err != nil {
			return err
		}
		if !ok {
			if _, err = db.Exec(col.ddl); err != nil {
				return errors.Wrapf(err, "adding user_progress.%s", col.name)
			}
		}
	}
	return nil
}

func hasColumn(db *sqlx.DB, engine, table, column string) (bool, error) {
	if engine == enginePostgres {
		var count int
		err := db.Get(&count,
			`SELECT COUNT(*) FROM information_schema.columns WHERE table_name = $1 AND column_name = $2`,
			table, column)
		if err != nil {
			return false, errors.Wrapf(err, "inspecting %s", table)
		}
		return count > 0, nil
	}

	rows, err := db.Queryx("PRAGMA table_info(" + table + ")")
	if err != nil {
		return false, errors.Wrapf(err, "inspecting %s", table)
	}
	defer func() { _ = rows.Close() }()

	for rows.Next() {
		var (
			cid     int
			name    string
			colType string
			notNull int
			dflt    interface{}
			primary int
		)
		if err = rows.Scan(&cid, &name, &colType, &notNull, &dflt, &primary); err != nil {
			return false, errors.Wrapf(err, "inspecting %s", table)
		}
		if name == column {
			return true, nil
		}
	}
	return false, rows.Err()
}
