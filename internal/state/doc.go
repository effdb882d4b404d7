// Package state persists the per-item checksum baseline: the hash of each
// item's content as of its last successful sync.
//
// The baseline is what lets the sync engine tell "I changed it" from "they
// changed it". It is advisory: losing it costs a conflict prompt, never data.
//
// # File Format
//
// The store is a single JSON document, by default at
// $XDG_STATE_HOME/dotvault/checksums.json:
//
//	{
//	  "version": 1,
//	  "items": {
//	    "Git-Config": {
//	      "checksum": "sha256:2c26b46b...",
//	      "last_synced_at": "2025-03-01T09:12:44Z",
//	      "direction": "pushed"
//	    }
//	  }
//	}
//
// # Durability
//
// Every mutation rewrites the whole file through a temp file and a rename,
// so readers never observe a half-written document. A missing file is an
// empty store. A file that cannot be parsed opens as an empty store together
// with an error wrapping errors.ErrStateCorrupt; callers that only read
// (drift) may continue, callers that would write must stop.
package state
