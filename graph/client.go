package graph

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore/policy"
	"github.com/Azure/azure-sdk-for-go/sdk/azidentity"
	"github.com/Azure/azure-sdk-for-go/sdk/azidentity/cache"
	msgraphsdk "github.com/microsoftgraph/msgraph-sdk-go"
	"github.com/viant/afs"
	afsfile "github.com/viant/afs/file"
)

const graphResource = "https://graph.microsoft.com"

// Manager provides Microsoft Graph client instances per account alias.
// Credentials use the device-code flow; the resulting authentication
// record is persisted under the storage dir so later runs sign in
// silently.
type Manager struct {
	clientID   string
	tenantID   string
	storageDir string
	fs         afs.Service
	// clients caches GraphServiceClient instances per alias+scopes.
	mu      sync.RWMutex
	clients map[string]*msgraphsdk.GraphServiceClient
	// creds caches device code credentials per alias, kept in memory
	// until process exit.
	creds map[string]*azidentity.DeviceCodeCredential
}

func NewManager(clientID, tenantID, storageDir string) *Manager {
	return &Manager{
		clientID:   clientID,
		tenantID:   tenantID,
		storageDir: expandPath(storageDir),
		fs:         afs.New(),
		clients:    map[string]*msgraphsdk.GraphServiceClient{},
		creds:      map[string]*azidentity.DeviceCodeCredential{},
	}
}

func (m *Manager) authRecordPath(alias string) string {
	return filepath.Join(m.storageDir, fmt.Sprintf("%s_auth_record.json", safePart(alias)))
}

func safePart(s string) string {
	s = strings.TrimSpace(os.ExpandEnv(s))
	// Replace characters unsafe for filenames or caches
	repl := strings.NewReplacer("/", "_", "\\", "_", ":", "_", "|", "_", " ", "_", "@", "_")
	return repl.Replace(s)
}

func (m *Manager) ensureDirs(ctx context.Context) error {
	if m.storageDir == "" {
		return errors.New("storageDir is required")
	}
	if ok, _ := m.fs.Exists(ctx, m.storageDir); ok {
		return nil
	}
	return m.fs.Create(ctx, m.storageDir, afsfile.DefaultDirOsMode, true)
}

func expandPath(p string) string {
	if p == "" {
		return p
	}
	// expand $HOME and other env vars
	p = os.ExpandEnv(p)
	// expand ~ and ~/ to home dir
	if strings.HasPrefix(p, "~") {
		if home, err := os.UserHomeDir(); err == nil {
			if p == "~" {
				p = home
			} else if strings.HasPrefix(p, "~/") {
				p = filepath.Join(home, p[2:])
			}
		}
	}
	return p
}

// QualifyScopes turns short delegated scope names (Calendars.Read) into
// fully qualified Graph scopes, leaving URLs untouched.
func QualifyScopes(scopes []string) []string {
	out := make([]string, 0, len(scopes))
	for _, s := range scopes {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		if strings.HasPrefix(s, "https://") || s == "offline_access" || s == "openid" || s == "profile" {
			out = append(out, s)
			continue
		}
		out = append(out, graphResource+"/"+s)
	}
	return out
}

// DefaultScopes is the minimal read-only calendar access set.
func DefaultScopes() []string {
	return []string{graphResource + "/Calendars.Read", "offline_access"}
}

// Client returns a ready-to-use GraphServiceClient with given scopes.
func (m *Manager) Client(ctx context.Context, alias string, scopes []string, prompt func(string)) (*msgraphsdk.GraphServiceClient, error) {
	key := m.clientKey(alias, scopes)
	m.mu.RLock()
	if cli, ok := m.clients[key]; ok {
		m.mu.RUnlock()
		return cli, nil
	}
	m.mu.RUnlock()

	cred, err := m.Credential(ctx, alias, scopes, prompt)
	if err != nil {
		return nil, err
	}
	client, err := msgraphsdk.NewGraphServiceClientWithCredentials(cred, scopes)
	if err != nil {
		return nil, err
	}
	m.mu.Lock()
	// Double-check in case another goroutine created it meanwhile.
	if existing, ok := m.clients[key]; ok {
		m.mu.Unlock()
		return existing, nil
	}
	m.clients[key] = client
	m.mu.Unlock()
	return client, nil
}

// Credential returns a cached DeviceCodeCredential for alias, acquiring
// and caching if needed.
func (m *Manager) Credential(ctx context.Context, alias string, scopes []string, prompt func(string)) (*azidentity.DeviceCodeCredential, error) {
	m.mu.RLock()
	if c := m.creds[alias]; c != nil {
		m.mu.RUnlock()
		return c, nil
	}
	m.mu.RUnlock()
	cred, _, err := m.acquireCredential(ctx, alias, scopes, prompt)
	if err != nil {
		return nil, err
	}
	m.mu.Lock()
	if existing := m.creds[alias]; existing != nil {
		m.mu.Unlock()
		return existing, nil
	}
	m.creds[alias] = cred
	m.mu.Unlock()
	return cred, nil
}

// Token acquires an access token for scopes via the alias credential.
func (m *Manager) Token(ctx context.Context, alias string, scopes []string, prompt func(string)) (string, error) {
	cred, err := m.Credential(ctx, alias, scopes, prompt)
	if err != nil {
		return "", err
	}
	tok, err := cred.GetToken(ctx, policy.TokenRequestOptions{Scopes: scopes})
	if err != nil {
		return "", err
	}
	return tok.Token, nil
}

// Acquire performs authentication only (forces the device-code flow when
// no silent login is possible).
func (m *Manager) Acquire(ctx context.Context, alias string, scopes []string, prompt func(string)) error {
	_, _, err := m.acquireCredential(ctx, alias, scopes, prompt)
	return err
}

// HasAuthRecord reports whether an auth record exists for alias.
func (m *Manager) HasAuthRecord(ctx context.Context, alias string) bool {
	ok, _ := m.fs.Exists(ctx, m.authRecordPath(alias))
	return ok
}

// acquireCredential performs the device code flow. If an auth record
// exists it is used for silent login first.
func (m *Manager) acquireCredential(ctx context.Context, alias string, scopes []string, prompt func(string)) (*azidentity.DeviceCodeCredential, azidentity.AuthenticationRecord, error) {
	if err := m.ensureDirs(ctx); err != nil {
		return nil, azidentity.AuthenticationRecord{}, err
	}
	recPath := m.authRecordPath(alias)
	var rec azidentity.AuthenticationRecord
	haveRec := false
	if data, err := m.fs.DownloadWithURL(ctx, recPath); err == nil {
		_ = json.Unmarshal(data, &rec)
		haveRec = true
	}

	// Persist tokens via azidentity/cache (Keychain on macOS).
	aCache, err := cache.New(&cache.Options{Name: "ol-calendar-" + safePart(alias)})
	if err != nil {
		return nil, azidentity.AuthenticationRecord{}, err
	}
	// Always provide a prompt callback so the SDK does not print to
	// stdout on its own.
	var userPrompt = func(_ context.Context, msg azidentity.DeviceCodeMessage) error {
		if prompt != nil {
			prompt(msg.Message)
		}
		return nil
	}
	opts := &azidentity.DeviceCodeCredentialOptions{
		TenantID:   m.tenantID,
		ClientID:   m.clientID,
		Cache:      aCache,
		UserPrompt: userPrompt,
	}
	if haveRec {
		opts.AuthenticationRecord = rec
	}
	cred, err := azidentity.NewDeviceCodeCredential(opts)
	if err != nil {
		return nil, azidentity.AuthenticationRecord{}, err
	}

	if haveRec {
		// Quick silent token preflight. If it fails, fall back to the
		// interactive flow and persist a fresh record.
		tctx, cancel := context.WithTimeout(ctx, 2*time.Second)
		_, preErr := cred.GetToken(tctx, policy.TokenRequestOptions{Scopes: scopes})
		cancel()
		if preErr == nil {
			return cred, rec, nil
		}
	}
	rec, err = cred.Authenticate(ctx, &policy.TokenRequestOptions{Scopes: scopes})
	if err != nil {
		return nil, azidentity.AuthenticationRecord{}, err
	}
	m.saveAuthRecord(ctx, recPath, alias, rec)
	return cred, rec, nil
}

func (m *Manager) saveAuthRecord(ctx context.Context, recPath, alias string, rec azidentity.AuthenticationRecord) {
	data, err := json.Marshal(rec)
	if err != nil {
		return
	}
	if err := m.fs.Upload(ctx, recPath, 0o600, bytes.NewReader(data)); err != nil {
		log.Printf("[graph] failed to save auth record for %s: %v", alias, err)
		return
	}
	if Debug() {
		log.Printf("[graph] saved auth record; alias=%s path=%s", alias, recPath)
	}
}

// Debug reports whether verbose graph logging is enabled.
func Debug() bool {
	v := strings.ToLower(strings.TrimSpace(os.Getenv("OL_CALENDAR_DEBUG")))
	return v != "" && v != "0" && v != "false"
}

// clientKey builds a stable cache key from alias and normalized scopes.
func (m *Manager) clientKey(alias string, scopes []string) string {
	// normalize scopes: lowercase and sort
	if len(scopes) > 0 {
		norm := make([]string, 0, len(scopes))
		for _, s := range scopes {
			if s == "" {
				continue
			}
			norm = append(norm, strings.ToLower(s))
		}
		sort.Strings(norm)
		scopes = norm
	}
	return alias + "|" + m.tenantID + "|" + strings.Join(scopes, ",")
}
