package models_test

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/pagemill/pagemill/internal/models"
)

func TestDecodeFieldPayload(t *testing.T) {
	tests := []struct {
		name    string
		kind    models.FieldKind
		raw     string
		wantErr error
	}{
		{
			name: "valid homepage summary",
			kind: models.FieldHomepageSummary,
			raw:  `{"url":"https://example.com","title":"Example"}`,
		},
		{
			name:    "homepage summary without url",
			kind:    models.FieldHomepageSummary,
			raw:     `{"title":"Example"}`,
			wantErr: nil, // validation error, checked separately below
		},
		{
			name: "valid sitemap",
			kind: models.FieldSitemap,
			raw:  `{"entries":[{"url":"https://example.com/pricing"}]}`,
		},
		{
			name:    "sitemap with empty entry url",
			kind:    models.FieldSitemap,
			raw:     `{"entries":[{"url":""}]}`,
			wantErr: nil,
		},
		{
			name: "valid contact info",
			kind: models.FieldContactInfo,
			raw:  `{"emails":["hello@example.com"]}`,
		},
		{
			name:    "unknown kind rejected",
			kind:    models.FieldKind("seo_keywords"),
			raw:     `{"anything":true}`,
			wantErr: models.ErrUnknownFieldKind,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			payload, err := models.DecodeFieldPayload(tt.kind, json.RawMessage(tt.raw))

			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("DecodeFieldPayload() error = %v, want %v", err, tt.wantErr)
				}
				return
			}

			// Cases named "without"/"empty" are schema violations and must
			// fail validation; the rest must decode cleanly.
			switch tt.name {
			case "homepage summary without url", "sitemap with empty entry url":
				if err == nil {
					t.Fatal("DecodeFieldPayload() expected validation error, got nil")
				}
			default:
				if err != nil {
					t.Fatalf("DecodeFieldPayload() unexpected error: %v", err)
				}
				if payload.Kind() != tt.kind {
					t.Errorf("payload.Kind() = %q, want %q", payload.Kind(), tt.kind)
				}
			}
		})
	}
}

func TestEncodeFieldPayloadRejectsInvalid(t *testing.T) {
	_, err := models.EncodeFieldPayload(models.HeroContent{})
	if err == nil {
		t.Fatal("EncodeFieldPayload() expected error for empty hero content")
	}
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	raw, err := models.EncodeFieldPayload(models.BrandAssets{LogoURL: "https://example.com/logo.svg"})
	if err != nil {
		t.Fatalf("EncodeFieldPayload() error = %v", err)
	}

	payload, err := models.DecodeFieldPayload(models.FieldBrandAssets, raw)
	if err != nil {
		t.Fatalf("DecodeFieldPayload() error = %v", err)
	}

	brand, ok := payload.(*models.BrandAssets)
	if !ok {
		t.Fatalf("payload has type %T, want *models.BrandAssets", payload)
	}
	if brand.LogoURL != "https://example.com/logo.svg" {
		t.Errorf("LogoURL = %q, want original value", brand.LogoURL)
	}
}
