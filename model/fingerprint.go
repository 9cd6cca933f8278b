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

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"io"
)

// Fingerprint returns a deterministic hash over the Fact's semantically
// identifying fields: type, value, Object bindings (including direction),
// organization, origin, access mode, confidence and in-reference-to. Two
// Facts with equal fingerprints are the same logical statement; the ingest
// path uses this to deduplicate concurrent submissions. Timestamps, ACL
// entries and comments deliberately do not contribute.
func (f *Fact) Fingerprint() string {
	h := sha256.New()
	h.Write(f.TypeID[:])
	writeString(h, f.Value)
	h.Write(f.SourceObjectID[:])
	h.Write(f.DestinationObjectID[:])
	if f.Bidirectional {
		h.Write([]byte{1})
	} else {
		h.Write([]byte{0})
	}
	h.Write(f.OrganizationID[:])
	h.Write(f.OriginID[:])
	binary.Write(h, binary.BigEndian, int32(f.AccessMode))
	binary.Write(h, binary.BigEndian, f.Confidence)
	h.Write(f.InReferenceToID[:])
	return hex.EncodeToString(h.Sum(nil))
}

// writeString writes the string length-prefixed so that adjacent fields can
// never alias each other.
func writeString(w io.Writer, s string) {
	var n [4]byte
	binary.BigEndian.PutUint32(n[:], uint32(len(s)))
	w.Write(n[:])
	w.Write([]byte(s))
}
