// SPDX-License-Identifier: MPL-2.0

package issue

import (
	"cmp"
	"maps"
	"slices"

	"github.com/charmbracelet/glamour"
)

const (
	NoPartialsFoundId Id = iota + 1
	PartialSyntaxErrorId
	PartialsMissingId
	RequirementsCycleId
	InvalidSelectorId
	NameCollisionId
	ConfigLoadFailedId
	ServerStartFailedId
)

type (
	Id int

	MarkdownMsg string

	HttpLink string

	// Issue is a catalog entry of Markdown guidance shown next to an error.
	Issue struct {
		id       Id          // ID used to lookup the issue
		mdMsg    MarkdownMsg // Markdown text that will be rendered
		docLinks []HttpLink
		extLinks []HttpLink // external links that might be useful for the user
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

// Render renders the guidance with the given glamour style ("dark", "light",
// "notty", or a path to a JSON style).
func (i *Issue) Render(stylePath string) (string, error) {
	extraMd := ""
	if len(i.docLinks) > 0 || len(i.extLinks) > 0 {
		extraMd += "\n\n## See also\n"
		for _, link := range i.docLinks {
			extraMd += "- <" + string(link) + ">\n"
		}
		for _, link := range i.extLinks {
			extraMd += "- <" + string(link) + ">\n"
		}
	}
	return render(string(i.mdMsg)+extraMd, stylePath)
}

var (
	render = glamour.Render

	noPartialsFoundIssue = &Issue{
		id: NoPartialsFoundId,
		mdMsg: `
# No partials found!

Discovery scanned the configured roots but no file matched the partial patterns.

## Things you can try:
- Check the roots and patterns in effect:
~~~
$ graphweave config show
~~~

- Point discovery at another directory:
~~~
$ graphweave --root ./schema list
~~~

- Make sure partial files use the configured extension (default ` + "`*.partial`" + `)`,
	}

	partialSyntaxErrorIssue = &Issue{
		id: PartialSyntaxErrorId,
		mdMsg: `
# A partial could not be parsed!

Every partial needs a ` + "`PARTIAL:`" + ` header and may declare each section only once.

## Example of a valid partial:
~~~
PARTIAL: User accounts
REQUIRES: base
QUERY:
  user(id: ID!): User
TYPES:
type User { id: ID! }
~~~

## Things you can try:
- Section headers are upper-case names at the start of a line followed by a colon
- Run the checker to list every problem at once:
~~~
$ graphweave check
~~~`,
	}

	partialsMissingIssue = &Issue{
		id: PartialsMissingId,
		mdMsg: `
# Some partials are missing!

A selector or a ` + "`REQUIRES`" + ` entry names a partial that discovery did not find.

## Things you can try:
- List the partials that are available:
~~~
$ graphweave list
~~~

- Check for typos in the selector or the ` + "`REQUIRES`" + ` line
- Regular expression selectors are written between slashes: ` + "`/user.*/`",
	}

	requirementsCycleIssue = &Issue{
		id: RequirementsCycleId,
		mdMsg: `
# Requirement cycle detected!

Partials require each other in a loop, or the requirement chain is deeper than
the configured ceiling.

## Things you can try:
- Inspect the requirement graph:
~~~
$ graphweave check
~~~

- Move shared definitions into a partial that requires nothing
- Raise the ceiling if the chain is legitimately deep:
~~~cue
resolver: max_depth: 8
~~~`,
	}

	invalidSelectorIssue = &Issue{
		id: InvalidSelectorId,
		mdMsg: `
# Invalid selector!

Selectors are partial names, or regular expressions between slashes that must
match a whole name.

## Examples:
~~~
$ graphweave aggregate users orders
$ graphweave aggregate '/billing_.*/'
~~~`,
	}

	nameCollisionIssue = &Issue{
		id: NameCollisionId,
		mdMsg: `
# Two partials share a name!

The name of a partial is its file name without extension. When two roots
contain the same name, the one found first wins.

## Things you can try:
- Rename one of the files
- Reorder ` + "`roots`" + ` so the intended file is scanned first
- Exclude one of them with an ` + "`ignore`" + ` pattern`,
	}

	configLoadFailedIssue = &Issue{
		id: ConfigLoadFailedId,
		mdMsg: `
# Failed to load configuration!

## Things you can try:
- Print the file that is being read:
~~~
$ graphweave config path
~~~

- Create a fresh default file:
~~~
$ graphweave config init --force
~~~

- Check ` + "`GRAPHWEAVE_*`" + ` environment variables and any ` + "`.env`" + ` file`,
	}

	serverStartFailedIssue = &Issue{
		id: ServerStartFailedId,
		mdMsg: `
# The schema server could not start!

## Things you can try:
- Pick another address:
~~~
$ graphweave serve --addr 127.0.0.1:0
~~~

- Check whether another process is already listening on the port`,
	}

	issues = map[Id]*Issue{
		noPartialsFoundIssue.Id():    noPartialsFoundIssue,
		partialSyntaxErrorIssue.Id(): partialSyntaxErrorIssue,
		partialsMissingIssue.Id():    partialsMissingIssue,
		requirementsCycleIssue.Id():  requirementsCycleIssue,
		invalidSelectorIssue.Id():    invalidSelectorIssue,
		nameCollisionIssue.Id():      nameCollisionIssue,
		configLoadFailedIssue.Id():   configLoadFailedIssue,
		serverStartFailedIssue.Id():  serverStartFailedIssue,
	}
)

// Values returns every catalog entry ordered by Id.
func Values() []*Issue {
	return slices.SortedFunc(maps.Values(issues), func(a, b *Issue) int { return cmp.Compare(a.id, b.id) })
}

func Get(id Id) *Issue {
	return issues[id]
}
