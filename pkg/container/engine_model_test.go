// SPDX-License-Identifier: MPL-2.0

package container

import (
	"fmt"
	"slices"
	"strings"
)

const defaultModelStats = `{"CPUPerc":"1.00%","MemUsage":"2MiB / 10MiB"}`

type (
	// engineModel emulates engine-side container state for the fake engine:
	// create, start, stop, rm, inspect, stats, ps, and exec against files.
	engineModel struct {
		containers map[string]*modelContainer
		order      []string
		// startsAs maps an image to the state start moves its containers to
		// (default running). "exited" emulates a process that exits at once.
		startsAs map[string]string
		// statsFor maps an image to its stats output (default defaultModelStats).
		statsFor map[string]string
	}

	modelContainer struct {
		image  string
		status string
		files  map[string]string
	}
)

// emulate attaches a fresh engine model to f and returns it. Configure the
// model before issuing commands.
func (f *fakeEngine) emulate() *engineModel {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.model = &engineModel{
		containers: make(map[string]*modelContainer),
		startsAs:   make(map[string]string),
		statsFor:   make(map[string]string),
	}
	return f.model
}

// add registers an existing container and returns it.
func (m *engineModel) add(id, image, status string) *modelContainer {
	c := &modelContainer{image: image, status: status, files: make(map[string]string)}
	m.containers[id] = c
	m.order = append(m.order, id)
	return c
}

func (m *engineModel) respond(args []string) (fakeResponse, bool) {
	if len(args) == 0 {
		return fakeResponse{}, false
	}
	last := args[len(args)-1]

	switch {
	case args[0] == "create":
		id := fmt.Sprintf("c%d", len(m.order)+1)
		m.add(id, last, StatusCreated)
		return ok(id + "\n"), true

	case args[0] == "start":
		c, r := m.lookup(last)
		if c == nil {
			return r, true
		}
		c.status = StatusRunning
		if s, found := m.startsAs[c.image]; found {
			c.status = s
		}
		return ok(last + "\n"), true

	case args[0] == "stop":
		c, r := m.lookup(last)
		if c == nil {
			return r, true
		}
		if c.status != StatusRunning {
			return fail(fmt.Sprintf("Error: can only stop running containers: %s is in state %s: container state improper", last, c.status), 125), true
		}
		c.status = StatusExited
		return ok(last + "\n"), true

	case args[0] == "rm":
		c, r := m.lookup(last)
		if c == nil {
			return r, true
		}
		if c.status == StatusRunning && !slices.Contains(args, "-f") {
			return fail("Error: cannot remove container "+last+": container is running", 2), true
		}
		delete(m.containers, last)
		m.order = slices.DeleteFunc(m.order, func(id string) bool { return id == last })
		return ok(last + "\n"), true

	case len(args) >= 2 && args[0] == "container" && args[1] == "inspect":
		if _, r := m.lookup(last); r.exitCode != 0 {
			return r, true
		}
		return ok("[{}]\n"), true

	case args[0] == "inspect":
		c, _ := m.lookup(last)
		if c == nil {
			return fail("Error: No such object: "+last, 1), true
		}
		return ok(c.status + "\n"), true

	case args[0] == "stats":
		c, r := m.lookup(last)
		if c == nil {
			return r, true
		}
		if c.status != StatusRunning {
			return fail("Error: container "+last+" is not running", 125), true
		}
		if out, found := m.statsFor[c.image]; found {
			return ok(out), true
		}
		return ok(defaultModelStats + "\n"), true

	case args[0] == "ps":
		var sb strings.Builder
		for _, id := range m.order {
			fmt.Fprintf(&sb, "%s %s\n", id, m.containers[id].image)
		}
		return ok(sb.String()), true

	case args[0] == "exec" && len(args) >= 3:
		c, r := m.lookup(args[1])
		if c == nil {
			return r, true
		}
		if c.status != StatusRunning {
			return fail("Error: container "+args[1]+" is not running", 126), true
		}
		switch {
		case args[2] == "cat" && len(args) == 4:
			content, found := c.files[args[3]]
			if !found {
				return fail("cat: can't open '"+args[3]+"': No such file or directory", 1), true
			}
			return ok(content), true
		case args[2] == "test" && len(args) == 5:
			if _, found := c.files[args[4]]; found {
				return ok(""), true
			}
			return fail("", 1), true
		}
	}
	return fakeResponse{}, false
}

// lookup returns the container, or nil and a not-found response.
func (m *engineModel) lookup(id string) (*modelContainer, fakeResponse) {
	if c, found := m.containers[id]; found {
		return c, fakeResponse{}
	}
	return nil, fail("Error: No such container: "+id, 1)
}
