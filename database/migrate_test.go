package database

import (
	"errors"
	"strings"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func newMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	gdb, err := gorm.Open(postgres.New(postgres.Config{Conn: db}), &gorm.Config{SkipDefaultTransaction: true})
	require.NoError(t, err)
	return gdb, mock
}

func TestApplyStatementsExecutesAll(t *testing.T) {
	gdb, mock := newMockDB(t)

	for range tenantStatements {
		mock.ExpectExec(".*").WillReturnResult(sqlmock.NewResult(0, 0))
	}

	require.NoError(t, applyStatements(gdb, tenantStatements))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestApplyStatementsStopsOnError(t *testing.T) {
	gdb, mock := newMockDB(t)

	mock.ExpectExec(".*").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(".*").WillReturnError(errors.New("boom"))

	err := applyStatements(gdb, tenantStatements)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "boom")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPinSchema(t *testing.T) {
	gdb, mock := newMockDB(t)

	mock.ExpectExec(`SET LOCAL search_path = "t_acme_1a2b3c4d", public`).
		WillReturnResult(sqlmock.NewResult(0, 0))

	require.NoError(t, PinSchema(gdb, "t_acme_1a2b3c4d"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPinSchemaRejectsInjection(t *testing.T) {
	gdb, _ := newMockDB(t)

	for _, bad := range []string{"", "Acme", `x"; DROP SCHEMA public; --`, "1abc", "a-b"} {
		assert.ErrorIs(t, PinSchema(gdb, bad), ErrInvalidSchema, bad)
	}
}

func TestSchemaNameFor(t *testing.T) {
	name := SchemaNameFor("  Joe's Plumbing & Heating  ")
	assert.True(t, strings.HasPrefix(name, "t_joe_s_plumbing_heating_"), name)
	assert.Regexp(t, schemaPattern, name)

	assert.NotEqual(t, SchemaNameFor("Acme"), SchemaNameFor("Acme"))
	assert.Regexp(t, schemaPattern, SchemaNameFor("!!!"))
	assert.Regexp(t, schemaPattern, SchemaNameFor(strings.Repeat("long name ", 20)))
}
