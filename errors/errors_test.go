package errors

import (
	"errors"
	"fmt"
	"testing"
)

func TestAssociationError(t *testing.T) {
	err := NewAssociationError(
		RejectSourceServiceUser,
		RejectReasonCalledAETitleNotRecognized,
		"called AE MWL_OTHER is not served here",
	)

	if err.Result != RejectResultPermanent {
		t.Errorf("Result = %v, want %v", err.Result, RejectResultPermanent)
	}
	if err.Source != RejectSourceServiceUser {
		t.Errorf("Source = %v, want %v", err.Source, RejectSourceServiceUser)
	}
	if err.Reason != RejectReasonCalledAETitleNotRecognized {
		t.Errorf("Reason = %v, want %v", err.Reason, RejectReasonCalledAETitleNotRecognized)
	}

	wrapped := fmt.Errorf("connect: %w", err)
	if !errors.Is(wrapped, ErrAssociationRejected) {
		t.Error("wrapped association error should match ErrAssociationRejected")
	}

	var assocErr *AssociationError
	if !errors.As(wrapped, &assocErr) {
		t.Fatal("errors.As should find the association error")
	}
	if assocErr.Msg == "" {
		t.Error("Msg should survive wrapping")
	}
}

func TestDIMSEError(t *testing.T) {
	tests := []struct {
		name      string
		status    uint16
		isCancel  bool
		isFailure bool
	}{
		{"Success", 0x0000, false, false},
		{"Pending", 0xFF00, false, false},
		{"Cancel", 0xFE00, true, false},
		{"Unable to process", 0xC001, false, true},
		{"Identifier mismatch", 0xA900, false, true},
		{"SOP class not supported", 0x0122, false, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := NewDIMSEError("C-FIND", tt.status, "test error")

			if err.IsCancel() != tt.isCancel {
				t.Errorf("IsCancel() = %v, want %v", err.IsCancel(), tt.isCancel)
			}
			if err.IsFailure() != tt.isFailure {
				t.Errorf("IsFailure() = %v, want %v", err.IsFailure(), tt.isFailure)
			}
		})
	}
}

func TestNetworkError(t *testing.T) {
	innerErr := errors.New("connection refused")
	err := NewNetworkError("dial", innerErr)

	if err.Op != "dial" {
		t.Errorf("Op = %v, want dial", err.Op)
	}

	if !errors.Is(err, innerErr) {
		t.Error("Should unwrap to inner error")
	}
}

func TestPDUError(t *testing.T) {
	err := NewPDUError(0x04, "PDV length exceeds PDU")

	if err.PDUType != 0x04 {
		t.Errorf("PDUType = 0x%02X, want 0x04", err.PDUType)
	}
	if !errors.Is(err, ErrInvalidPDU) {
		t.Error("PDU error should match ErrInvalidPDU")
	}
}

func TestAbortError(t *testing.T) {
	tests := []struct {
		source byte
		want   string
	}{
		{0x00, "connection aborted by service-user (reason: 0x01)"},
		{0x02, "connection aborted by service-provider (reason: 0x01)"},
		{0x01, "connection aborted by unknown (reason: 0x01)"},
	}

	for _, tt := range tests {
		err := NewAbortError(tt.source, 0x01)
		if got := err.Error(); got != tt.want {
			t.Errorf("Error() = %q, want %q", got, tt.want)
		}
		if !errors.Is(err, ErrConnectionClosed) {
			t.Error("abort should match ErrConnectionClosed")
		}
	}
}

func TestAssociationRejectStrings(t *testing.T) {
	tests := []struct {
		got      string
		expected string
	}{
		{RejectReasonNoReasonGiven.String(), "no-reason-given"},
		{RejectReasonCalledAETitleNotRecognized.String(), "called-ae-title-not-recognized"},
		{AssociationRejectReason(0xFF).String(), "unknown"},
		{RejectSourceServiceProvider.String(), "service-provider"},
		{AssociationRejectSource(0xFF).String(), "unknown"},
		{RejectResultTransient.String(), "transient"},
		{AssociationRejectResult(0x09).String(), "unknown"},
	}

	for _, tt := range tests {
		if tt.got != tt.expected {
			t.Errorf("String() = %v, want %v", tt.got, tt.expected)
		}
	}
}
