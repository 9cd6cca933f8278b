// Copyright 2019 eBay Inc.
// Primary authors: Simon Fell, Diego Ongaro,
//                  Raymond Kroeker, and Sathish Kandasamy.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
// https://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package model

import "github.com/google/uuid"

// The well known base set of types needed to bootstrap the graph. These IDs
// are fixed so that every deployment agrees on them without coordination.
var (
	// RetractionTypeID is the well known FactType ID for Retraction
	// meta-Facts. A Retraction attached to a Fact logically voids it from
	// the perspective of viewers who can read the Retraction, subject to
	// recursive reinstatement (a retracted Retraction no longer counts).
	RetractionTypeID = uuid.MustParse("00000000-0000-4000-8000-000000000001")

	// CommentTypeID is the well known FactType ID for free-form annotation
	// meta-Facts.
	CommentTypeID = uuid.MustParse("00000000-0000-4000-8000-000000000002")

	// NameTypeID is the well known FactType ID for single-binding Facts
	// that attach a display name property to an Object.
	NameTypeID = uuid.MustParse("00000000-0000-4000-8000-000000000003")

	// CategoryTypeID is the well known FactType ID for single-binding
	// Facts that attach a category property to an Object.
	CategoryTypeID = uuid.MustParse("00000000-0000-4000-8000-000000000004")

	// SystemOriginID is the Origin used for Facts asserted by the platform
	// itself rather than an authenticated actor.
	SystemOriginID = uuid.MustParse("00000000-0000-4000-8000-0000000000ff")
)

// RetractionTypeName is the canonical name of the Retraction FactType.
const RetractionTypeName = "Retraction"

// WellKnownFactTypes returns the FactTypes every store is expected to carry.
func WellKnownFactTypes() []FactType {
	return []FactType{
		{ID: RetractionTypeID, Name: RetractionTypeName},
		{ID: CommentTypeID, Name: "Comment"},
		{ID: NameTypeID, Name: "name"},
		{ID: CategoryTypeID, Name: "category"},
	}
}
