package manifest

import (
	"encoding/json"
	"errors"
	"strings"

	"github.com/tweag/asset-shell/integrity"
)

// Manifest describes the JSON manifest file format:
// a map from asset paths to entries.
type Manifest map[string]Entry

// validate collects all issues instead of stopping at the first one.
// An empty manifest is valid: it describes an empty namespace.
func (m Manifest) validate() error {
	issues := []string{}
	for path, entry := range m {
		issuesForPath := []string{}
		if len(path) == 0 || path[0] == '/' {
			issuesForPath = append(issuesForPath, "path must be a non-empty path to the artifact, relative to the volume root")
		}
		if len(entry.URIs) == 0 {
			issuesForPath = append(issuesForPath, "entry must have at least one URI")
		} else {
			for _, uri := range entry.URIs {
				if len(uri) == 0 {
					issuesForPath = append(issuesForPath, `"uri" must be a non-empty string`)
				} else if !strings.HasPrefix(uri, "http://") && !strings.HasPrefix(uri, "https://") {
					// allow other schemes in the future
					issuesForPath = append(issuesForPath, `"uri" must start with "http://" or "https://"`)
				}
			}
		}
		integrity, err := entry.getIntegrity()
		if err != nil {
			issuesForPath = append(issuesForPath, err.Error())
		} else if len(integrity) == 0 {
			issuesForPath = append(issuesForPath, `"integrity" may not be empty`)
		}
		if entry.Size != nil && *entry.Size < 0 {
			issuesForPath = append(issuesForPath, `"size" must be a non-negative integer`)
		}
		if len(issuesForPath) > 0 {
			issues = append(issues, path+": "+strings.Join(issuesForPath, ", "))
		}
	}
	if len(issues) > 0 {
		return errors.New("manifest validation failed: \n  " + strings.Join(issues, "\n  "))
	}
	return nil
}

// Entry describes a single entry in the (JSON) manifest.
type Entry struct {
	// URIs is a list of mirror urls pointing to the same artifact.
	URIs []string `json:"uris"`
	// Integrity is a string or a list of strings containing the expected SRI digests of the artifact.
	// See https://developer.mozilla.org/en-US/docs/Web/Security/Subresource_Integrity
	// for more information.
	// When a list is used, only one digest per algorithm is allowed.
	// The digests must all be of the same data.
	Integrity json.RawMessage `json:"integrity"`
	// Size is the (optional) size of the artifact in bytes.
	// If provided, the size can be reported before the artifact is fetched.
	Size *int64 `json:"size,omitempty"`
}

func (e *Entry) getIntegrity() ([]string, error) {
	var integrity []string
	var singleIntegrity string
	if err := json.Unmarshal(e.Integrity, &integrity); err == nil {
		// do nothing - the integrity is already parsed
	} else if err := json.Unmarshal(e.Integrity, &singleIntegrity); err == nil {
		integrity = []string{singleIntegrity}
	} else {
		return nil, errors.New(`"integrity" must be a string or a list of strings`)
	}
	return integrity, nil
}

// Leaf is a file node in the tree.
type Leaf struct {
	URIs      []string
	Integrity integrity.Integrity
	// SizeHint is the size of the artifact in bytes.
	// A negative value indicates that the size is unknown.
	SizeHint int64
}

// Directory is an inner node in the tree.
type Directory struct {
	// Children is a map from the name of the child to the child node.
	// The name must be a valid directory entry name (no "/" or "\0").
	// The child node is a *Directory or a *Leaf.
	Children map[string]any
}

// LeafFromEntry converts a manifest entry into a leaf node.
func LeafFromEntry(entry Entry) (Leaf, error) {
	sriList, err := entry.getIntegrity()
	if err != nil {
		return Leaf{}, err
	}
	leafIntegrity, err := integrity.IntegrityFromString(sriList...)
	if err != nil {
		return Leaf{}, err
	}
	leaf := Leaf{
		URIs:      entry.URIs,
		Integrity: leafIntegrity,
		SizeHint:  -1,
	}
	if entry.Size != nil {
		leaf.SizeHint = *entry.Size
	}
	return leaf, nil
}

// DecodeError marks a manifest that could not be decoded as JSON,
// as opposed to one that decoded but failed validation.
type DecodeError struct {
	wrapped error
}

func (e DecodeError) Error() string { return "decoding manifest: " + e.wrapped.Error() }
func (e DecodeError) Unwrap() error { return e.wrapped }
