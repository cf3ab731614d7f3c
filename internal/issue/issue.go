// SPDX-License-Identifier: MPL-2.0

package issue

import (
	"cmp"
	"maps"
	"slices"
	"strings"

	"github.com/charmbracelet/glamour"
)

const (
	EngineNotAvailableId Id = iota + 1
	EnginePermissionDeniedId
	RootlessPodmanId
	ContainerNotFoundId
	ImageNotFoundId
	WaitTimeoutId
	ConfigLoadFailedId
)

type (
	// Id identifies a known issue in the troubleshooting catalog.
	Id int

	MarkdownMsg string

	HttpLink string

	// Issue is a troubleshooting page: a markdown body plus reference links.
	Issue struct {
		id       Id
		mdMsg    MarkdownMsg
		docLinks []HttpLink // never empty
		extLinks []HttpLink
	}
)

func (i *Issue) Id() Id {
	return i.id
}

func (i *Issue) MarkdownMsg() MarkdownMsg {
	return i.mdMsg
}

func (i *Issue) DocLinks() []HttpLink {
	return slices.Clone(i.docLinks)
}

func (i *Issue) ExtLinks() []HttpLink {
	return slices.Clone(i.extLinks)
}

// Markdown returns the page body followed by a "See also" link list.
func (i *Issue) Markdown() string {
	var sb strings.Builder
	sb.WriteString(string(i.mdMsg))
	if len(i.docLinks) > 0 || len(i.extLinks) > 0 {
		sb.WriteString("\n\n## See also\n")
		for _, link := range append(slices.Clone(i.docLinks), i.extLinks...) {
			sb.WriteString("- <" + string(link) + ">\n")
		}
	}
	return sb.String()
}

// Render renders the page for a terminal with the given glamour style
// ("dark", "light", "notty", or a path to a JSON style file).
func (i *Issue) Render(stylePath string) (string, error) {
	return render(i.Markdown(), stylePath)
}

var (
	render = glamour.Render

	engineNotAvailableIssue = &Issue{
		id: EngineNotAvailableId,
		mdMsg: `
# No container engine found

Neither ` + "`podman`" + ` nor ` + "`docker`" + ` answered a version query.

## Things you can try
- Install Podman or Docker and make sure the binary is on your ` + "`PATH`" + `.
- Point ` + "`binary`" + ` in your config (or ` + "`SHIPYARD_BINARY`" + `) at the executable.
- For Docker, check that the daemon is running:
~~~
$ docker version
~~~`,
		docLinks: []HttpLink{"https://docs.docker.com/engine/install/"},
		extLinks: []HttpLink{"https://podman.io/docs/installation"},
	}

	enginePermissionDeniedIssue = &Issue{
		id: EnginePermissionDeniedId,
		mdMsg: `
# Permission denied talking to the engine

The engine CLI could not reach its daemon socket.

## Things you can try
- Add your user to the ` + "`docker`" + ` group and log in again:
~~~
$ sudo usermod -aG docker $USER
~~~
- Use rootless Podman instead.`,
		docLinks: []HttpLink{"https://docs.docker.com/engine/install/linux-postinstall/"},
	}

	rootlessPodmanIssue = &Issue{
		id: RootlessPodmanId,
		mdMsg: `
# Rootless Podman could not set up the container

Podman failed while configuring ` + "`net.ipv4.ping_group_range`" + `. This is
usually a race between concurrent rootless containers and is retried
automatically; persistent failures point at the host configuration.

## Things you can try
- Run fewer containers concurrently.
- Check ` + "`/proc/sys/net/ipv4/ping_group_range`" + ` covers your user's groups.`,
		docLinks: []HttpLink{"https://github.com/containers/podman/blob/main/docs/tutorials/rootless_tutorial.md"},
	}

	containerNotFoundIssue = &Issue{
		id: ContainerNotFoundId,
		mdMsg: `
# Container not found

The engine does not know the container. It may have been removed, or it
exited and was started with ` + "`--rm`" + `.

## Things you can try
- List every container, including stopped ones:
~~~
$ docker ps -a
~~~`,
		docLinks: []HttpLink{"https://docs.docker.com/reference/cli/docker/container/ls/"},
	}

	imageNotFoundIssue = &Issue{
		id: ImageNotFoundId,
		mdMsg: `
# Image not found

The image is not present locally and could not be pulled.

## Things you can try
- Check the image name and tag for typos.
- Pull it explicitly to see the registry's answer:
~~~
$ docker pull <image>
~~~
- Log in to the registry if the image is private.`,
		docLinks: []HttpLink{"https://docs.docker.com/reference/cli/docker/image/pull/"},
	}

	waitTimeoutIssue = &Issue{
		id: WaitTimeoutId,
		mdMsg: `
# Timed out waiting for a container

The container did not reach the expected state within the configured
budget.

## Things you can try
- Inspect the container's logs for a crash loop.
- Raise the matching entry under ` + "`timeouts`" + ` in your config, e.g.
~~~
timeouts: start: "10s"
~~~`,
		docLinks: []HttpLink{"https://docs.docker.com/reference/cli/docker/container/logs/"},
	}

	configLoadFailedIssue = &Issue{
		id: ConfigLoadFailedId,
		mdMsg: `
# Configuration could not be loaded

The config file failed CUE validation or an environment override holds an
invalid value.

## Things you can try
- Durations must look like ` + "`\"2s\"`" + ` or ` + "`\"500ms\"`" + `.
- ` + "`container_engine`" + ` must be ` + "`\"docker\"`" + ` or ` + "`\"podman\"`" + `.
- Unset stale ` + "`SHIPYARD_*`" + ` variables.`,
		docLinks: []HttpLink{"https://cuelang.org/docs/"},
	}

	issues = map[Id]*Issue{
		engineNotAvailableIssue.Id():     engineNotAvailableIssue,
		enginePermissionDeniedIssue.Id(): enginePermissionDeniedIssue,
		rootlessPodmanIssue.Id():         rootlessPodmanIssue,
		containerNotFoundIssue.Id():      containerNotFoundIssue,
		imageNotFoundIssue.Id():          imageNotFoundIssue,
		waitTimeoutIssue.Id():            waitTimeoutIssue,
		configLoadFailedIssue.Id():       configLoadFailedIssue,
	}
)

// Values returns every catalog entry ordered by Id.
func Values() []*Issue {
	return slices.SortedFunc(maps.Values(issues), func(a, b *Issue) int {
		return cmp.Compare(a.id, b.id)
	})
}

// Get returns the issue for id, or nil.
func Get(id Id) *Issue {
	return issues[id]
}
