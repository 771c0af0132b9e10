package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/logimarket/leadflow/internal/lead"
)

var leadColumnNames = []string{
	"id", "company_name", "email", "phone", "fax", "website", "industry", "source",
	"status", "sent_at", "sent_subject", "snapshot_uri", "created_at",
}

func TestInsertStoresRow(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	store, err := NewLeadStoreWithPool(mock)
	require.NoError(t, err)

	now := time.Unix(1700000000, 0).UTC()
	l := lead.Lead{
		ID:          "uuid-v7",
		CompanyName: "ABC運送",
		Email:       "contact@abc-unso.co.jp",
		Phone:       "03-1234-5678",
		Website:     "https://abc-unso.co.jp",
		Industry:    "運送業",
		Source:      "関東 運送会社",
		Status:      lead.StatusNew,
		CreatedAt:   now,
	}

	mock.ExpectExec("INSERT INTO leads").
		WithArgs(
			l.ID, l.CompanyName, l.Email, l.Phone, l.Fax, l.Website,
			l.Industry, l.Source, string(l.Status), l.SentAt,
			l.SentSubject, l.SnapshotURI, l.CreatedAt,
		).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	require.NoError(t, store.Insert(context.Background(), l))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestInsertRequiresID(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	store, err := NewLeadStoreWithPool(mock)
	require.NoError(t, err)

	require.Error(t, store.Insert(context.Background(), lead.Lead{Email: "a@x.co.jp"}))
}

func TestFindByEmailReturnsNilWhenAbsent(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	store, err := NewLeadStoreWithPool(mock)
	require.NoError(t, err)

	mock.ExpectQuery("FROM leads").
		WithArgs("nobody@x.co.jp").
		WillReturnRows(pgxmock.NewRows(leadColumnNames))

	got, err := store.FindByEmail(context.Background(), "nobody@x.co.jp")
	require.NoError(t, err)
	assert.Nil(t, got)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestFindByEmailReturnsLead(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	store, err := NewLeadStoreWithPool(mock)
	require.NoError(t, err)

	now := time.Unix(1700000000, 0).UTC()
	mock.ExpectQuery("FROM leads").
		WithArgs("contact@abc-unso.co.jp").
		WillReturnRows(pgxmock.NewRows(leadColumnNames).AddRow(
			"uuid-v7", "ABC運送", "contact@abc-unso.co.jp", "03-1234-5678", "",
			"https://abc-unso.co.jp", "運送業", "query", "new",
			(*time.Time)(nil), "", "", now,
		))

	got, err := store.FindByEmail(context.Background(), "contact@abc-unso.co.jp")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "ABC運送", got.CompanyName)
	assert.Equal(t, lead.StatusNew, got.Status)
	assert.Nil(t, got.SentAt)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRecordOutcomeStampsSentAtOnlyWhenSent(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	store, err := NewLeadStoreWithPool(mock)
	require.NoError(t, err)

	sentAt := time.Unix(1700000000, 0).UTC()

	mock.ExpectExec("UPDATE leads").
		WithArgs("id-1", "sent", &sentAt, "件名").
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectExec("UPDATE leads").
		WithArgs("id-2", "failed", (*time.Time)(nil), "件名").
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	require.NoError(t, store.RecordOutcome(context.Background(), "id-1", lead.SendOutcome{
		Status: lead.StatusSent, SentAt: sentAt, Subject: "件名",
	}))
	require.NoError(t, store.RecordOutcome(context.Background(), "id-2", lead.SendOutcome{
		Status: lead.StatusFailed, SentAt: sentAt, Subject: "件名",
	}))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCountSentSince(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	store, err := NewLeadStoreWithPool(mock)
	require.NoError(t, err)

	startOfDay := time.Date(2026, 8, 30, 0, 0, 0, 0, time.UTC)
	mock.ExpectQuery("SELECT COUNT").
		WithArgs("sent", startOfDay).
		WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(42))

	count, err := store.CountSentSince(context.Background(), startOfDay)
	require.NoError(t, err)
	assert.Equal(t, 42, count)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestListByStatusScansRows(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	store, err := NewLeadStoreWithPool(mock)
	require.NoError(t, err)

	now := time.Unix(1700000000, 0).UTC()
	mock.ExpectQuery("FROM leads").
		WithArgs("new", 2).
		WillReturnRows(pgxmock.NewRows(leadColumnNames).
			AddRow("id-1", "A社", "a@x.co.jp", "", "", "https://x.co.jp", "運送業", "q", "new",
				(*time.Time)(nil), "", "", now).
			AddRow("id-2", "B社", "b@y.co.jp", "", "", "https://y.co.jp", "運送業", "q", "new",
				(*time.Time)(nil), "", "", now))

	leads, err := store.ListByStatus(context.Background(), lead.StatusNew, 2)
	require.NoError(t, err)
	require.Len(t, leads, 2)
	assert.Equal(t, "a@x.co.jp", leads[0].Email)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestGetSettingReturnsEmptyWhenUnset(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	store, err := NewLeadStoreWithPool(mock)
	require.NoError(t, err)

	mock.ExpectQuery("FROM settings").
		WithArgs("outreach.subject").
		WillReturnRows(pgxmock.NewRows([]string{"value"}))

	value, err := store.GetSetting(context.Background(), "outreach.subject")
	require.NoError(t, err)
	assert.Empty(t, value)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestGetSettingPropagatesQueryError(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	store, err := NewLeadStoreWithPool(mock)
	require.NoError(t, err)

	mock.ExpectQuery("FROM settings").
		WithArgs("outreach.body").
		WillReturnError(errors.New("connection reset"))

	_, err = store.GetSetting(context.Background(), "outreach.body")
	require.Error(t, err)
}
