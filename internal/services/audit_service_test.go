package services

import (
	"context"
	"testing"

	"github.com/lexipay/go-payments-backend/internal/domain"
)

func TestAuditService_RecordAndList(t *testing.T) {
	db := newSvcDB(t)
	s := NewAuditService(db)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		s.Record(ctx, phone, domain.AuditPINVerificationFailed, map[string]any{"attempts": i + 1}, RequestMeta{IPAddress: "1.2.3.4", UserAgent: "test"})
	}
	s.Record(ctx, phone, domain.AuditPINVerified, nil, RequestMeta{})

	rows, total, err := s.List(ctx, domain.AuditPINVerificationFailed, 1, 2)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if total != 3 || len(rows) != 2 {
		t.Fatalf("total = %d rows = %d, want 3/2", total, len(rows))
	}
	if rows[0].EventType != domain.AuditPINVerificationFailed {
		t.Fatalf("event type = %q", rows[0].EventType)
	}
	if rows[0].ID == "" {
		t.Fatalf("id not assigned")
	}

	rows, total, err = s.List(ctx, "", 0, -5)
	if err != nil {
		t.Fatalf("List all: %v", err)
	}
	if total != 4 || len(rows) != 4 {
		t.Fatalf("total = %d rows = %d, want 4/4", total, len(rows))
	}
}

func TestAuditService_NilReceiverIsSafe(t *testing.T) {
	var s *AuditService
	s.Record(context.Background(), phone, domain.AuditPINVerified, nil, RequestMeta{})
}
