// Package backup defines the storage interface for app backups and the
// key layout shared by every provider.
package backup

import (
	"context"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/hostsolo/hostsolo/pkg/compose"
)

// Provider stores and retrieves backup objects.
type Provider interface {
	// UploadFile stores one local file under key.
	UploadFile(ctx context.Context, localPath, key string) error

	// UploadDirectory stores every file below localDir under prefix,
	// keyed by slash-separated relative path. It returns the object count.
	UploadDirectory(ctx context.Context, localDir, prefix string) (int, error)

	// DownloadFile writes the object at key to localPath.
	DownloadFile(ctx context.Context, key, localPath string) error

	// DownloadDirectory writes every object below prefix into localDir.
	DownloadDirectory(ctx context.Context, prefix, localDir string) (int, error)

	// List returns all keys below prefix.
	List(ctx context.Context, prefix string) ([]Object, error)

	// Delete removes all objects below prefix and returns how many were removed.
	Delete(ctx context.Context, prefix string) (int, error)
}

// Object is a stored backup object.
type Object struct {
	Key          string
	Size         int64
	LastModified time.Time
}

// TimestampFormat is used for the snapshot segment of every key. It sorts
// lexically in time order and contains no characters that need escaping.
const TimestampFormat = "2006-01-02T15-04-05"

// Timestamp formats t in UTC.
func Timestamp(t time.Time) string {
	return t.UTC().Format(TimestampFormat)
}

// ParseTimestamp is the inverse of Timestamp.
func ParseTimestamp(s string) (time.Time, error) {
	return time.Parse(TimestampFormat, s)
}

// Prefix returns "{env}/{app}/".
func Prefix(env, app string) string {
	return env + "/" + app + "/"
}

// SnapshotPrefix returns "{env}/{app}/{ts}/".
func SnapshotPrefix(env, app, ts string) string {
	return Prefix(env, app) + ts + "/"
}

// Key joins the snapshot prefix with a relative path using "/".
func Key(env, app, ts, rel string) string {
	return SnapshotPrefix(env, app, ts) + strings.TrimPrefix(filepath.ToSlash(rel), "/")
}

// Snapshot groups the objects of one backup run.
type Snapshot struct {
	Timestamp string
	Objects   []Object
}

// Size is the total size of the snapshot's objects.
func (s Snapshot) Size() int64 {
	var total int64
	for _, o := range s.Objects {
		total += o.Size
	}
	return total
}

// Roots returns the distinct top-level entries (backup path basenames).
func (s Snapshot) Roots() []string {
	seen := map[string]bool{}
	var roots []string
	for _, o := range s.Objects {
		parts := strings.SplitN(o.Key, "/", 5)
		if len(parts) < 4 || seen[parts[3]] {
			continue
		}
		seen[parts[3]] = true
		roots = append(roots, parts[3])
	}
	sort.Strings(roots)
	return roots
}

// Group buckets objects by their timestamp segment (the third path
// segment), newest first. Keys with fewer segments are ignored.
func Group(objects []Object) []Snapshot {
	byTS := map[string]*Snapshot{}
	for _, o := range objects {
		parts := strings.SplitN(o.Key, "/", 4)
		if len(parts) < 4 || parts[2] == "" {
			continue
		}
		ts := parts[2]
		s, ok := byTS[ts]
		if !ok {
			s = &Snapshot{Timestamp: ts}
			byTS[ts] = s
		}
		s.Objects = append(s.Objects, o)
	}

	snapshots := make([]Snapshot, 0, len(byTS))
	for _, s := range byTS {
		snapshots = append(snapshots, *s)
	}
	sort.Slice(snapshots, func(i, j int) bool {
		return snapshots[i].Timestamp > snapshots[j].Timestamp
	})
	return snapshots
}

// ResolvePaths substitutes ${ENV} in each template and resolves relative
// results against root. Paths that do not exist are returned separately so
// the caller can warn about them.
func ResolvePaths(root string, templates []string, env string) (existing, missing []string) {
	for _, tmpl := range templates {
		p := compose.ResolveBackupPath(tmpl, env)
		if !filepath.IsAbs(p) {
			p = filepath.Join(root, p)
		}
		if _, err := os.Stat(p); err != nil {
			missing = append(missing, p)
			continue
		}
		existing = append(existing, p)
	}
	return existing, missing
}

// RootName is the key segment a backup path is stored under.
func RootName(localPath string) string {
	return filepath.Base(filepath.Clean(localPath))
}

// RelativeKey maps an object key below prefix to a local path below dir.
// It returns false for keys that would escape dir.
func RelativeKey(prefix, key, dir string) (string, bool) {
	rel := strings.TrimPrefix(key, prefix)
	if rel == "" || rel == key && prefix != "" {
		return "", false
	}
	clean := path.Clean("/" + rel)
	if clean == "/" {
		return "", false
	}
	return filepath.Join(dir, filepath.FromSlash(strings.TrimPrefix(clean, "/"))), true
}
