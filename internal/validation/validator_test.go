// Teamlink - Real-time Event Delivery for Team Collaboration
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/teamlink

package validation

import (
	"strings"
	"testing"
)

func TestGetValidator_Singleton(t *testing.T) {
	v1 := GetValidator()
	v2 := GetValidator()

	if v1 == nil {
		t.Fatal("GetValidator() should not return nil")
	}
	if v1 != v2 {
		t.Error("GetValidator() should return the same singleton instance")
	}
}

type messageRequest struct {
	RoomID   int64  `json:"roomId" validate:"required,gt=0"`
	SenderID int64  `json:"senderId" validate:"required,gt=0"`
	Content  string `json:"content" validate:"required,notblank,max=20"`
	Kind     string `json:"kind,omitempty" validate:"omitempty,oneof=text system"`
}

func TestValidateStruct_Valid(t *testing.T) {
	tests := []struct {
		name string
		req  messageRequest
	}{
		{"minimal", messageRequest{RoomID: 1, SenderID: 2, Content: "hi"}},
		{"with kind", messageRequest{RoomID: 1, SenderID: 2, Content: "hi", Kind: "system"}},
		{"content at max", messageRequest{RoomID: 1, SenderID: 2, Content: strings.Repeat("a", 20)}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := ValidateStruct(&tt.req); err != nil {
				t.Errorf("ValidateStruct() unexpected error: %v", err)
			}
		})
	}
}

func TestValidateStruct_Invalid(t *testing.T) {
	tests := []struct {
		name      string
		req       messageRequest
		wantField string
		wantTag   string
	}{
		{"missing room", messageRequest{SenderID: 2, Content: "hi"}, "roomId", "required"},
		{"negative sender", messageRequest{RoomID: 1, SenderID: -3, Content: "hi"}, "senderId", "gt"},
		{"blank content", messageRequest{RoomID: 1, SenderID: 2, Content: "   \n"}, "content", "notblank"},
		{"long content", messageRequest{RoomID: 1, SenderID: 2, Content: strings.Repeat("a", 21)}, "content", "max"},
		{"bad kind", messageRequest{RoomID: 1, SenderID: 2, Content: "hi", Kind: "video"}, "kind", "oneof"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateStruct(&tt.req)
			if err == nil {
				t.Fatal("ValidateStruct() expected error, got nil")
			}
			if len(err.Fields) != 1 {
				t.Fatalf("expected 1 error, got %d: %v", len(err.Fields), err)
			}
			got := err.Fields[0]
			if got.Field != tt.wantField || got.Tag != tt.wantTag {
				t.Errorf("got %s/%s, want %s/%s", got.Field, got.Tag, tt.wantField, tt.wantTag)
			}
		})
	}
}

type nestedConfig struct {
	Bus struct {
		Backend string `koanf:"backend" validate:"oneof=memory nats redis"`
	} `koanf:"bus"`
}

func TestValidateStruct_NestedUsesPath(t *testing.T) {
	var cfg nestedConfig
	cfg.Bus.Backend = "kafka"

	err := ValidateStruct(&cfg)
	if err == nil {
		t.Fatal("expected error for unknown backend")
	}
	if got := err.Fields[0].Field; got != "bus.backend" {
		t.Errorf("Field = %q, want bus.backend", got)
	}
	if !strings.Contains(err.Error(), "bus.backend must be one of: memory nats redis") {
		t.Errorf("unexpected message: %s", err.Error())
	}
}

type directRequest struct {
	SenderID   int64 `json:"senderId" validate:"required"`
	ReceiverID int64 `json:"receiverId" validate:"required,nefield=SenderID"`
}

func TestValidateStruct_CrossField(t *testing.T) {
	err := ValidateStruct(&directRequest{SenderID: 4, ReceiverID: 4})
	if err == nil {
		t.Fatal("expected error when sender equals receiver")
	}
	if got := err.Fields[0].Tag; got != "nefield" {
		t.Errorf("Tag = %q, want nefield", got)
	}
	if err := ValidateStruct(&directRequest{SenderID: 4, ReceiverID: 5}); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestToAPIError_SingleError(t *testing.T) {
	err := ValidateStruct(&messageRequest{SenderID: 2, Content: "hi"})
	if err == nil {
		t.Fatal("expected error")
	}

	apiErr := err.ToAPIError()
	if apiErr.Code != "VALIDATION_ERROR" {
		t.Errorf("Code = %q, want VALIDATION_ERROR", apiErr.Code)
	}
	if apiErr.Message != "roomId is required" {
		t.Errorf("Message = %q", apiErr.Message)
	}
	detail, ok := apiErr.Details.(FieldError)
	if !ok {
		t.Fatalf("Details has type %T, want FieldError", apiErr.Details)
	}
	if detail.Field != "roomId" || detail.Tag != "required" {
		t.Errorf("Details = %+v", detail)
	}
}

func TestToAPIError_MultipleErrors(t *testing.T) {
	err := ValidateStruct(&messageRequest{})
	if err == nil {
		t.Fatal("expected error")
	}
	if len(err.Fields) != 3 {
		t.Fatalf("expected 3 errors, got %d", len(err.Fields))
	}

	apiErr := err.ToAPIError()
	details, ok := apiErr.Details.(map[string][]FieldError)
	if !ok {
		t.Fatalf("Details has type %T", apiErr.Details)
	}
	if len(details["fields"]) != 3 {
		t.Errorf("expected 3 field entries, got %d", len(details["fields"]))
	}
	for _, want := range []string{"roomId", "senderId", "content"} {
		if !strings.Contains(apiErr.Message, want) {
			t.Errorf("Message %q missing %s", apiErr.Message, want)
		}
	}
}

func TestToAPIError_Empty(t *testing.T) {
	apiErr := (&RequestValidationError{}).ToAPIError()
	if apiErr.Message != "Validation failed" {
		t.Errorf("Message = %q", apiErr.Message)
	}
	if apiErr.Details != nil {
		t.Errorf("Details = %v, want nil", apiErr.Details)
	}
}

func TestErrorMessages(t *testing.T) {
	type limits struct {
		Name  string `json:"name" validate:"min=3"`
		Count int    `json:"count" validate:"max=5"`
		Port  int    `json:"port" validate:"gte=1,lte=65535"`
	}

	err := ValidateStruct(&limits{Name: "a", Count: 9, Port: 0})
	if err == nil {
		t.Fatal("expected error")
	}

	want := map[string]string{
		"name":  "name must be at least 3 characters",
		"count": "count must be at most 5",
		"port":  "port must be greater than or equal to 1",
	}
	if len(err.Fields) != len(want) {
		t.Fatalf("got %d errors, want %d", len(err.Fields), len(want))
	}
	for _, e := range err.Fields {
		if e.Error() != want[e.Field] {
			t.Errorf("%s: got %q, want %q", e.Field, e.Error(), want[e.Field])
		}
	}
}

func TestValidateStruct_NotAStruct(t *testing.T) {
	err := ValidateStruct(42)
	if err == nil {
		t.Fatal("expected error for non-struct input")
	}
	if got := err.Fields[0].Tag; got != "invalid" {
		t.Errorf("Tag = %q, want invalid", got)
	}
}

func TestValidateStruct_SkipsDashFields(t *testing.T) {
	type withHidden struct {
		Secret string `json:"-" validate:"required"`
	}
	err := ValidateStruct(&withHidden{})
	if err == nil {
		t.Fatal("expected error for missing hidden field")
	}
	if got := err.Fields[0].Field; got != "Secret" {
		t.Errorf("Field = %q, want Secret", got)
	}
}
