package database_test

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"

	"github.com/pagemill/pagemill/internal/models"
)

func TestUpsertField(t *testing.T) {
	repo, mock := newMockRepo(t)
	ctx := context.Background()
	ownerID := uuid.New()

	t.Run("persists a valid payload", func(t *testing.T) {
		rows := sqlmock.NewRows([]string{"owner_id", "scope_id", "field_kind", "payload", "updated_at"}).
			AddRow(ownerID, nil, "homepage_summary", []byte(`{"url":"https://example.com","title":"Example"}`), time.Now())
		mock.ExpectQuery("INSERT INTO site_context_fields").WillReturnRows(rows)

		field, err := repo.UpsertField(ctx, ownerID, nil, models.HomepageSummary{
			URL:   "https://example.com",
			Title: "Example",
		})
		if err != nil {
			t.Fatalf("UpsertField() error = %v", err)
		}
		if field.Kind != models.FieldHomepageSummary {
			t.Errorf("Kind = %q, want homepage_summary", field.Kind)
		}
	})

	t.Run("rejects an invalid payload before touching the database", func(t *testing.T) {
		_, err := repo.UpsertField(ctx, ownerID, nil, models.HeroContent{})
		if err == nil {
			t.Fatal("UpsertField() expected validation error for empty hero content")
		}
	})

	if expectErr := mock.ExpectationsWereMet(); expectErr != nil {
		t.Errorf("unfulfilled expectations: %v", expectErr)
	}
}

func TestListDecodedFieldsSkipsCorruptRows(t *testing.T) {
	repo, mock := newMockRepo(t)
	ctx := context.Background()
	ownerID := uuid.New()

	rows := sqlmock.NewRows([]string{"owner_id", "scope_id", "field_kind", "payload", "updated_at"}).
		AddRow(ownerID, nil, "homepage_summary", []byte(`{"url":"https://example.com","title":"Example"}`), time.Now()).
		AddRow(ownerID, nil, "contact_info", []byte(`{not json`), time.Now())
	mock.ExpectQuery("SELECT (.+) FROM site_context_fields").WillReturnRows(rows)

	decoded, err := repo.ListDecodedFields(ctx, ownerID, nil)
	if err != nil {
		t.Fatalf("ListDecodedFields() error = %v", err)
	}
	if len(decoded) != 1 {
		t.Fatalf("got %d decoded fields, want 1 (corrupt row skipped)", len(decoded))
	}
	if decoded[0].Payload.Kind() != models.FieldHomepageSummary {
		t.Errorf("decoded kind = %q, want homepage_summary", decoded[0].Payload.Kind())
	}

	if expectErr := mock.ExpectationsWereMet(); expectErr != nil {
		t.Errorf("unfulfilled expectations: %v", expectErr)
	}
}
