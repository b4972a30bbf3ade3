package hub

// viewerState is what one browser tab last reported
type viewerState struct {
	hidden       bool
	intersecting bool
}

// tracker folds per-viewer reports into one page-visibility and one
// intersection answer. Not safe for concurrent use.
type tracker struct {
	viewers map[string]viewerState
}

func newTracker() *tracker {
	return &tracker{viewers: make(map[string]viewerState)}
}

// join registers a viewer as visible and on-screen until it says otherwise
func (t *tracker) join(id string) {
	t.viewers[id] = viewerState{intersecting: true}
}

func (t *tracker) leave(id string) {
	delete(t.viewers, id)
}

func (t *tracker) setHidden(id string, hidden bool) {
	if v, ok := t.viewers[id]; ok {
		v.hidden = hidden
		t.viewers[id] = v
	}
}

func (t *tracker) setIntersecting(id string, intersecting bool) {
	if v, ok := t.viewers[id]; ok {
		v.intersecting = intersecting
		t.viewers[id] = v
	}
}

// aggregate reports the page visible unless every viewer is hidden, and
// the rotation on-screen unless every visible viewer scrolled it away.
// With no viewers both answers are true.
func (t *tracker) aggregate() (pageVisible, intersecting bool) {
	if len(t.viewers) == 0 {
		return true, true
	}

	visible := 0
	for _, v := range t.viewers {
		if v.hidden {
			continue
		}
		visible++
		if v.intersecting {
			intersecting = true
		}
	}

	if visible == 0 {
		// Page suspension already covers it
		return false, true
	}
	return true, intersecting
}
