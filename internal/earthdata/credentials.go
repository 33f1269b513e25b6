package earthdata

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/jdx/go-netrc"

	"github.com/i474232898/terraclime/internal/common"
)

// DefaultLoginHost is the Earthdata Login (URS) host and netrc machine key.
const DefaultLoginHost = "urs.earthdata.nasa.gov"

var (
	usernameEnv = []string{"EARTHDATA_USERNAME", "NASA_EARTHDATA_USERNAME", "URS_USERNAME"}
	passwordEnv = []string{"EARTHDATA_PASSWORD", "NASA_EARTHDATA_PASSWORD", "URS_PASSWORD"}
)

// ErrCredentialsNotFound is matched by every *CredentialsNotFoundError.
var ErrCredentialsNotFound = errors.New("earthdata credentials not found")

// CredentialsNotFoundError lists every netrc location that was searched.
type CredentialsNotFoundError struct {
	Machine  string
	Searched []string
	Problems []string
}

func (e *CredentialsNotFoundError) Error() string {
	searched := "(none)"
	if len(e.Searched) > 0 {
		searched = strings.Join(e.Searched, ", ")
	}
	msg := fmt.Sprintf("could not find URS credentials; searched netrc locations: %s. "+
		"Set %s/%s (or %s/%s), point NETRC at a netrc file, or add "+
		"\"machine %s login USERNAME password PASSWORD\" to ~/.netrc",
		searched, usernameEnv[0], passwordEnv[0], usernameEnv[1], passwordEnv[1], e.Machine)
	if len(e.Problems) > 0 {
		msg += " (" + strings.Join(e.Problems, "; ") + ")"
	}
	return msg
}

func (e *CredentialsNotFoundError) Is(target error) bool {
	return target == ErrCredentialsNotFound
}

// Credentials are URS login details.
type Credentials struct {
	Username string
	Password string
}

func (c Credentials) valid() bool {
	return c.Username != "" && c.Password != ""
}

// String never reveals the password.
func (c Credentials) String() string {
	return fmt.Sprintf("%s:****", c.Username)
}

// CredentialResolver finds credentials from, in order: explicit values,
// environment variables, or the first usable netrc file.
type CredentialResolver struct {
	explicit   Credentials
	machine    string
	candidates []string
	getenv     func(string) string
}

// NewCredentialResolver builds a resolver for the given login host. Explicit
// credentials win when both username and password are set.
func NewCredentialResolver(machine string, explicit Credentials) *CredentialResolver {
	return newCredentialResolver(machine, explicit, os.Getenv, userHome())
}

func newCredentialResolver(machine string, explicit Credentials, getenv func(string) string, home string) *CredentialResolver {
	if machine == "" {
		machine = DefaultLoginHost
	}
	var candidates []string
	if p := getenv("NETRC"); p != "" {
		candidates = append(candidates, expandHome(p, home))
	}
	if home != "" {
		// _netrc is the Windows convention; try both everywhere.
		candidates = append(candidates,
			filepath.Join(home, "_netrc"),
			filepath.Join(home, ".netrc"),
		)
	}
	return &CredentialResolver{
		explicit:   explicit,
		machine:    machine,
		candidates: common.Dedupe(candidates),
		getenv:     getenv,
	}
}

// Candidates returns the netrc paths the resolver will search, in order.
func (r *CredentialResolver) Candidates() []string {
	out := make([]string, len(r.candidates))
	copy(out, r.candidates)
	return out
}

// Resolve returns the first complete set of credentials.
func (r *CredentialResolver) Resolve() (Credentials, error) {
	if r.explicit.valid() {
		return r.explicit, nil
	}

	fromEnv := Credentials{
		Username: common.FirstNonEmpty(r.getenv, usernameEnv...),
		Password: common.FirstNonEmpty(r.getenv, passwordEnv...),
	}
	if fromEnv.valid() {
		return fromEnv, nil
	}

	var problems []string
	for _, path := range r.candidates {
		if _, err := os.Stat(path); err != nil {
			continue
		}
		creds, err := r.fromNetrc(path)
		if err != nil {
			problems = append(problems, fmt.Sprintf("%s: %v", path, err))
			continue
		}
		return creds, nil
	}

	return Credentials{}, &CredentialsNotFoundError{
		Machine:  r.machine,
		Searched: r.Candidates(),
		Problems: problems,
	}
}

func (r *CredentialResolver) fromNetrc(path string) (Credentials, error) {
	n, err := netrc.Parse(path)
	if err != nil {
		return Credentials{}, fmt.Errorf("parse: %w", err)
	}
	m := n.Machine(r.machine)
	if m == nil {
		return Credentials{}, fmt.Errorf("no entry for machine %s", r.machine)
	}
	creds := Credentials{Username: m.Get("login"), Password: m.Get("password")}
	if !creds.valid() {
		return Credentials{}, fmt.Errorf("entry for %s lacks login or password", r.machine)
	}
	return creds, nil
}

func userHome() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return home
}

func expandHome(p, home string) string {
	if home == "" {
		return p
	}
	if p == "~" {
		return home
	}
	if strings.HasPrefix(p, "~/") || strings.HasPrefix(p, `~\`) {
		return filepath.Join(home, p[2:])
	}
	return p
}
