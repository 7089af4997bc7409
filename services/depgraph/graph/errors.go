// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package graph

import "errors"

var (
	// ErrGraphFrozen indicates a mutation was attempted on a frozen graph.
	ErrGraphFrozen = errors.New("graph: graph is frozen (read-only)")

	// ErrInvalidNode indicates an invalid node was passed to AddNode.
	ErrInvalidNode = errors.New("graph: invalid node")

	// ErrDuplicateNode indicates a node with the same ID already exists.
	ErrDuplicateNode = errors.New("graph: duplicate node")

	// ErrNodeNotFound indicates a referenced node does not exist.
	ErrNodeNotFound = errors.New("graph: node not found")

	// ErrUnknownLabel indicates an edge label with no registered reverse.
	ErrUnknownLabel = errors.New("graph: unknown edge label")

	// ErrMaxNodesExceeded indicates the graph is at node capacity.
	ErrMaxNodesExceeded = errors.New("graph: max nodes exceeded")

	// ErrMaxEdgesExceeded indicates the graph is at edge capacity.
	ErrMaxEdgesExceeded = errors.New("graph: max edges exceeded")

	// ErrSnapshotNotFound indicates no snapshot exists for the project.
	ErrSnapshotNotFound = errors.New("graph: snapshot not found")

	// ErrSnapshotCorrupted indicates a snapshot failed integrity checks.
	ErrSnapshotCorrupted = errors.New("graph: snapshot corrupted")
)
