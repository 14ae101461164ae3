package containers

// ReleaseStack collects release functions as resources are created and runs
// them in reverse creation order.
type ReleaseStack struct {
	entries []releaseEntry
}

type releaseEntry struct {
	name    string
	release func()
}

func NewReleaseStack() *ReleaseStack {
	return &ReleaseStack{}
}

// Push registers release for a resource that was just created.
func (s *ReleaseStack) Push(name string, release func()) {
	s.entries = append(s.entries, releaseEntry{name: name, release: release})
}

func (s *ReleaseStack) Len() int {
	return len(s.entries)
}

// ReleaseAll pops every entry, newest first. onRelease, when not nil, is
// called with the entry name before its release function runs.
func (s *ReleaseStack) ReleaseAll(onRelease func(name string)) {
	for len(s.entries) > 0 {
		last := len(s.entries) - 1
		e := s.entries[last]
		s.entries = s.entries[:last]
		if onRelease != nil {
			onRelease(e.name)
		}
		e.release()
	}
}
