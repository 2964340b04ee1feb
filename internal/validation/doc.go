// Teamlink - Real-time Event Delivery for Team Collaboration
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/teamlink

// Package validation provides struct validation using go-playground/validator v10.
//
// The package wraps a singleton validator so struct metadata is cached once per
// process. Field names in errors come from json tags (koanf tags for config
// structs), which keeps messages aligned with the request bodies accepted by
// the ingest API.
//
// # Quick Start
//
//	type deliverRequest struct {
//	    RecipientID int64  `json:"recipientId" validate:"required,gt=0"`
//	    Message     string `json:"message" validate:"required,notblank,max=2000"`
//	}
//
//	if verr := validation.ValidateStruct(&req); verr != nil {
//	    apiErr := verr.ToAPIError()
//	    respondError(w, http.StatusBadRequest, apiErr.Code, apiErr.Message, apiErr.Details)
//	    return
//	}
//
// A single failure puts its FieldError in Details; several are listed under
// Details["fields"].
//
// # Custom Tags
//
//   - notblank: string must contain at least one non-whitespace character
//
// # Thread Safety
//
// GetValidator and ValidateStruct are safe for concurrent use.
package validation
