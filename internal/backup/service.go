// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package backup defines the engine's side of the external backup boundary.
//
// The engine exposes exactly two capabilities to the backup component:
// produce a full exportable snapshot, and accept a full snapshot replacing
// local state. Transport, rotation and authentication live entirely on the
// other side of the boundary.
package backup

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/seleane/persona/internal/storage"
)

// =============================================================================
// COLLABORATOR INTERFACES
// =============================================================================

// SnapshotProducer produces a full exportable snapshot of local state.
type SnapshotProducer interface {
	ExportSnapshot() (*storage.Snapshot, error)
}

// SnapshotConsumer accepts a full snapshot and replaces local state with it.
type SnapshotConsumer interface {
	ImportSnapshot(*storage.Snapshot) error
}

// =============================================================================
// SERVICE
// =============================================================================

// Service is the dependency-injected boundary object handed to the backup
// component. It is constructed once per session with its collaborators as
// constructor-supplied values; nothing is reassigned after construction.
type Service struct {
	producer SnapshotProducer
	consumer SnapshotConsumer
}

// NewService creates the backup boundary service.
func NewService(producer SnapshotProducer, consumer SnapshotConsumer) *Service {
	return &Service{producer: producer, consumer: consumer}
}

// Produce serializes a full snapshot for the backup component. The context
// allows the caller to cancel; cancellation leaves local state untouched
// because producing a snapshot is read-only.
func (s *Service) Produce(ctx context.Context) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	snap, err := s.producer.ExportSnapshot()
	if err != nil {
		return nil, err
	}
	return json.MarshalIndent(snap, "", "  ")
}

// Restore parses a snapshot document and replaces local state with it.
func (s *Service) Restore(ctx context.Context, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if len(data) == 0 {
		return errors.New("empty snapshot document")
	}

	var snap storage.Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return err
	}
	return s.consumer.ImportSnapshot(&snap)
}
