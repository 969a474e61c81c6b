package commands

import (
	"bytes"
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/spf13/cobra"

	"github.com/hostsolo/hostsolo/pkg/backup"
	"github.com/hostsolo/hostsolo/pkg/config"
	"github.com/hostsolo/hostsolo/pkg/dns"
	"github.com/hostsolo/hostsolo/pkg/docker"
	"github.com/hostsolo/hostsolo/pkg/errdefs"
	"github.com/hostsolo/hostsolo/pkg/settings"
)

const testConfig = `domain: x.io
email: ops@x.io
backup:
  bucket: backups
environments:
  prod:
    subdomain: ""
  staging:
    subdomain: staging
apps:
  web:
    image: nginx
    ports:
      - "8080:80"
    volumes:
      - ./data/${ENV}/web:/usr/share/nginx/html
    environment:
      DB_URL: postgres://${DB_HOST}/app
    backup_paths:
      - ./data/${ENV}/web
  worker:
    image: busybox
`

type runnerCall struct {
	file string
	args []string
}

func (c runnerCall) String() string {
	return strings.Join(c.args, " ")
}

// fakeRunner records compose invocations. ps output is keyed by file.
type fakeRunner struct {
	calls []runnerCall
	ps    map[string]string
	fail  map[string]error // keyed by first argument
}

func (r *fakeRunner) Run(ctx context.Context, file string, args ...string) error {
	r.calls = append(r.calls, runnerCall{file: file, args: args})
	if len(args) > 0 {
		if err, ok := r.fail[args[0]]; ok {
			return err
		}
	}
	return nil
}

func (r *fakeRunner) Output(ctx context.Context, file string, args ...string) ([]byte, error) {
	r.calls = append(r.calls, runnerCall{file: file, args: args})
	if len(args) > 0 {
		if err, ok := r.fail[args[0]]; ok {
			return nil, err
		}
	}
	return []byte(r.ps[file]), nil
}

func (r *fakeRunner) commands() []string {
	out := make([]string, len(r.calls))
	for i, c := range r.calls {
		out[i] = c.String()
	}
	return out
}

type fakeEngine struct {
	networks []string
	pingErr  error
}

func (e *fakeEngine) Ping(ctx context.Context) (docker.Info, error) {
	if e.pingErr != nil {
		return docker.Info{}, e.pingErr
	}
	return docker.Info{APIVersion: "1.45", OSType: "linux"}, nil
}

func (e *fakeEngine) EnsureNetwork(ctx context.Context, name string) (bool, error) {
	for _, n := range e.networks {
		if n == name {
			return false, nil
		}
	}
	e.networks = append(e.networks, name)
	return true, nil
}

func (e *fakeEngine) Close() error { return nil }

// fakeDNS keeps records keyed by name/type.
type fakeDNS struct {
	records map[string]*dns.Record
	deleted []string
}

func newFakeDNS() *fakeDNS {
	return &fakeDNS{records: map[string]*dns.Record{}}
}

func (f *fakeDNS) ListRecords(ctx context.Context, domain string) ([]*dns.Record, error) {
	var out []*dns.Record
	for _, r := range f.records {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (f *fakeDNS) UpsertRecord(ctx context.Context, req dns.UpsertRecordRequest) (*dns.Record, error) {
	r := &dns.Record{
		ID:     req.Name,
		Domain: req.Domain,
		Name:   req.Name,
		Type:   req.Type,
		Value:  req.Value,
		TTL:    dns.TTLOrDefault(req.TTL),
	}
	f.records[req.Name+"/"+string(req.Type)] = r
	return r, nil
}

func (f *fakeDNS) DeleteRecord(ctx context.Context, domain, name string, recordType dns.RecordType) error {
	f.deleted = append(f.deleted, name)
	delete(f.records, name+"/"+string(recordType))
	return nil
}

// fakeBackup stores objects in memory with the same key layout as s3.
type fakeBackup struct {
	objects map[string][]byte
	// deadlines records, per method, whether the call carried a deadline.
	deadlines map[string][]bool
}

func (f *fakeBackup) record(ctx context.Context, method string) {
	if f.deadlines == nil {
		f.deadlines = map[string][]bool{}
	}
	_, ok := ctx.Deadline()
	f.deadlines[method] = append(f.deadlines[method], ok)
}

func newFakeBackup() *fakeBackup {
	return &fakeBackup{objects: map[string][]byte{}}
}

func (f *fakeBackup) UploadFile(ctx context.Context, localPath, key string) error {
	data, err := os.ReadFile(localPath)
	if err != nil {
		return err
	}
	f.objects[key] = data
	return nil
}

func (f *fakeBackup) UploadDirectory(ctx context.Context, localDir, prefix string) (int, error) {
	f.record(ctx, "UploadDirectory")
	prefix = strings.TrimSuffix(prefix, "/") + "/"
	info, err := os.Stat(localDir)
	if err != nil {
		return 0, err
	}
	if !info.IsDir() {
		return 1, f.UploadFile(ctx, localDir, prefix+filepath.Base(localDir))
	}
	count := 0
	err = filepath.WalkDir(localDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return err
		}
		rel, _ := filepath.Rel(localDir, path)
		count++
		return f.UploadFile(ctx, path, prefix+filepath.ToSlash(rel))
	})
	return count, err
}

func (f *fakeBackup) DownloadFile(ctx context.Context, key, localPath string) error {
	f.record(ctx, "DownloadFile")
	data, ok := f.objects[key]
	if !ok {
		return errdefs.NotFound("object", key)
	}
	if err := os.MkdirAll(filepath.Dir(localPath), 0755); err != nil {
		return err
	}
	return os.WriteFile(localPath, data, 0644)
}

func (f *fakeBackup) DownloadDirectory(ctx context.Context, prefix, localDir string) (int, error) {
	f.record(ctx, "DownloadDirectory")
	prefix = strings.TrimSuffix(prefix, "/") + "/"
	count := 0
	for key := range f.objects {
		target, ok := backup.RelativeKey(prefix, key, localDir)
		if !ok {
			continue
		}
		if err := f.DownloadFile(ctx, key, target); err != nil {
			return count, err
		}
		count++
	}
	return count, nil
}

func (f *fakeBackup) List(ctx context.Context, prefix string) ([]backup.Object, error) {
	f.record(ctx, "List")
	var out []backup.Object
	for key, data := range f.objects {
		if strings.HasPrefix(key, prefix) {
			out = append(out, backup.Object{Key: key, Size: int64(len(data))})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out, nil
}

func (f *fakeBackup) Delete(ctx context.Context, prefix string) (int, error) {
	f.record(ctx, "Delete")
	n := 0
	for key := range f.objects {
		if strings.HasPrefix(key, prefix) {
			delete(f.objects, key)
			n++
		}
	}
	return n, nil
}

type fakeVerifier struct {
	result *dns.VerificationResult
}

func (v *fakeVerifier) Verify(ctx context.Context, hostname, expectedIP string) *dns.VerificationResult {
	r := *v.result
	r.Hostname = hostname
	r.ExpectedIP = expectedIP
	return &r
}

// testEnv is an App wired to fakes around a project in a temp dir.
type testEnv struct {
	app    *App
	out    *bytes.Buffer
	root   string
	runner *fakeRunner
	engine *fakeEngine
	dns    *fakeDNS
	backup *fakeBackup
}

var testNow = time.Date(2026, 3, 14, 9, 26, 53, 0, time.UTC)

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	root := t.TempDir()
	cfgPath := filepath.Join(root, "hostsolo.yaml")
	if err := os.WriteFile(cfgPath, []byte(testConfig), 0644); err != nil {
		t.Fatal(err)
	}

	env := &testEnv{
		out:    &bytes.Buffer{},
		root:   root,
		runner: &fakeRunner{ps: map[string]string{}},
		engine: &fakeEngine{},
		dns:    newFakeDNS(),
		backup: newFakeBackup(),
	}

	env.app = &App{
		Out:         env.out,
		Err:         env.out,
		In:          strings.NewReader(""),
		Interactive: func() bool { return false },
		ConfigPath:  cfgPath,
		Runner:      env.runner,
		Docker: func() (Engine, error) {
			return env.engine, nil
		},
		DNS: func(cfg *config.Config, s *settings.Settings) (dns.Provider, error) {
			return env.dns, nil
		},
		Backup: func(cfg *config.Config, s *settings.Settings) (backup.Provider, error) {
			return env.backup, nil
		},
		Settings: func(string) (*settings.Settings, error) {
			return &settings.Settings{AWSRegion: settings.DefaultRegion}, nil
		},
		PublicIP: func(ctx context.Context) (string, error) {
			return "203.0.113.7", nil
		},
		Verifier: &fakeVerifier{result: &dns.VerificationResult{}},
		Now:      func() time.Time { return testNow },
		Version:  "test",
	}
	return env
}

func (e *testEnv) run(args ...string) error {
	root := &cobra.Command{Use: "hostsolo", SilenceUsage: true, SilenceErrors: true}
	Register(root, e.app)
	root.SetArgs(args)
	root.SetOut(e.out)
	root.SetErr(e.out)
	return root.ExecuteContext(context.Background())
}

func (e *testEnv) path(parts ...string) string {
	return filepath.Join(append([]string{e.root}, parts...)...)
}

func (e *testEnv) write(t *testing.T, rel, content string) {
	t.Helper()
	p := e.path(rel)
	if err := os.MkdirAll(filepath.Dir(p), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(p, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
}

func (e *testEnv) read(t *testing.T, rel string) string {
	t.Helper()
	data, err := os.ReadFile(e.path(rel))
	if err != nil {
		t.Fatalf("read %s: %v", rel, err)
	}
	return string(data)
}

func (e *testEnv) input(s string) {
	e.app.In = strings.NewReader(s)
	e.app.stdin = nil
}

var errBoom = errors.New("boom")
