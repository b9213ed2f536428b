package guard

import (
	"sync"

	"github.com/Trandsoulz/student-connect-client/internal/session"
)

// MaxHops bounds redirect chains followed by a Navigator.
const MaxHops = 4

// Source is the slice of the session store a Navigator watches.
type Source interface {
	State() session.State
	Subscribe(func(session.State)) (unsubscribe func())
}

// Navigator tracks the current location for one session and re-runs the
// guard whenever the session's auth state changes, following redirects
// until a page renders.
type Navigator struct {
	src   Source
	unsub func()

	mu       sync.Mutex
	path     string
	decision Decision
}

func NewNavigator(src Source, path string) *Navigator {
	n := &Navigator{src: src}
	n.path, n.decision = resolve(path, src.State())
	n.unsub = src.Subscribe(func(st session.State) {
		n.mu.Lock()
		defer n.mu.Unlock()
		n.path, n.decision = resolve(n.path, st)
	})
	return n
}

// Navigate moves to path and returns the settled decision.
func (n *Navigator) Navigate(path string) Decision {
	st := n.src.State()
	n.mu.Lock()
	defer n.mu.Unlock()
	n.path, n.decision = resolve(path, st)
	return n.decision
}

// Current returns the settled path and the decision that rendered it.
func (n *Navigator) Current() (string, Decision) {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.path, n.decision
}

// Close stops watching the session.
func (n *Navigator) Close() { n.unsub() }

func resolve(path string, st session.State) (string, Decision) {
	path = Normalize(path)
	d := Decide(path, st.Authenticated, st.User.Role)
	for hops := 0; d.Kind == Redirect && hops < MaxHops; hops++ {
		path = d.Target
		d = Decide(path, st.Authenticated, st.User.Role)
	}
	return path, d
}
