package fingerprint

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/Ramsey-B/thistle/pkg/models"
)

// EntryExclusions are bookkeeping fields that do not change how an entry matches.
var EntryExclusions = map[string]bool{
	"created_at": true,
	"updated_at": true,
}

// Generate hashes the canonical JSON of data, skipping the excluded dot paths.
func Generate(data any, exclude map[string]bool) string {
	var b strings.Builder
	canonicalize(&b, data, exclude, "")
	sum := sha256.Sum256([]byte(b.String()))
	return hex.EncodeToString(sum[:])
}

// Snapshot fingerprints a set of blacklist entries. The result does not
// depend on entry order, so two passes over the same registry agree.
func Snapshot(entries []models.BlacklistEntry) (string, error) {
	sorted := append([]models.BlacklistEntry(nil), entries...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].ID < sorted[j].ID })

	raw, err := json.Marshal(sorted)
	if err != nil {
		return "", fmt.Errorf("failed to encode snapshot: %w", err)
	}

	var decoded []any
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return "", fmt.Errorf("failed to decode snapshot: %w", err)
	}

	return Generate(decoded, EntryExclusions), nil
}

func canonicalize(b *strings.Builder, data any, exclude map[string]bool, path string) {
	switch v := data.(type) {
	case map[string]any:
		keys := make([]string, 0, len(v))
		for k := range v {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		b.WriteByte('{')
		first := true
		for _, k := range keys {
			fieldPath := k
			if path != "" {
				fieldPath = path + "." + k
			}
			if excluded(fieldPath, exclude) {
				continue
			}
			if !first {
				b.WriteByte(',')
			}
			first = false
			key, _ := json.Marshal(k)
			b.Write(key)
			b.WriteByte(':')
			canonicalize(b, v[k], exclude, fieldPath)
		}
		b.WriteByte('}')
	case []any:
		b.WriteByte('[')
		for i, item := range v {
			if i > 0 {
				b.WriteByte(',')
			}
			// array elements share the parent path
			canonicalize(b, item, exclude, path)
		}
		b.WriteByte(']')
	default:
		encoded, _ := json.Marshal(v)
		b.Write(encoded)
	}
}

func excluded(path string, exclude map[string]bool) bool {
	if exclude[path] {
		return true
	}
	for prefix := range exclude {
		if strings.HasPrefix(path, prefix+".") {
			return true
		}
	}
	return false
}
