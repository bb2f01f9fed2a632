// SPDX-License-Identifier: MPL-2.0

package issue

import (
	"maps"
	"slices"

	"github.com/charmbracelet/glamour"
)

type Id int

const (
	UnsupportedPlatformId Id = iota + 1
	InvalidSpecifierId
	VersionNotFoundId
	DownloadFailureId
	RateLimitedId
	ChecksumMismatchId
	ExtractionErrorId
	LayoutErrorId
	ConfigLoadFailedId
)

type MarkdownMsg string

type HttpLink string

type Renderer interface {
	Render(in string, stylePath string) (string, error)
}

type Issue struct {
	id       Id          // ID used to lookup the issue
	mdMsg    MarkdownMsg // Markdown text that will be rendered
	docLinks []HttpLink
	extLinks []HttpLink // external links that might be useful for the user
}

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

func (i *Issue) Render(stylePath string) (string, error) {
	extraMd := ""
	if len(i.docLinks) > 0 || len(i.extLinks) > 0 {
		extraMd += "\n\n## See also\n"
		for _, link := range i.docLinks {
			extraMd += "\n- <" + string(link) + ">"
		}
		for _, link := range i.extLinks {
			extraMd += "\n- <" + string(link) + ">"
		}
	}
	return render(string(i.mdMsg)+extraMd, stylePath)
}

var (
	render = glamour.Render

	installDocs HttpLink = "https://www.pulumi.com/docs/install/"

	unsupportedPlatformIssue = &Issue{
		id: UnsupportedPlatformId,
		mdMsg: `
# Unsupported operating system!

The Pulumi CLI is only released for Linux, macOS (darwin) and Windows.
Nothing was downloaded.

## Things you can try:
- Run the install on a Linux, macOS or Windows runner
- On other systems, build the CLI from source`,
		docLinks: []HttpLink{installDocs},
	}

	invalidSpecifierIssue = &Issue{
		id: InvalidSpecifierId,
		mdMsg: `
# Invalid version specifier!

The version must be one of:

- ` + "`latest`" + `
- an exact version such as ` + "`3.1.2`" + ` or ` + "`v3.1.2`" + `
- a range such as ` + "`^3.0.0`" + `, ` + "`~3.1`" + ` or ` + "`>=3.0.0 <4.0.0`" + `

## Things you can try:
~~~
$ setup-pulumi install latest
$ setup-pulumi install "^3.0.0"
~~~`,
	}

	versionNotFoundIssue = &Issue{
		id: VersionNotFoundId,
		mdMsg: `
# Could not find a version that satisfied the version range!

No published Pulumi CLI release matches the requested version.

## Things you can try:
- Check the list of published versions
- Widen the range, for example ` + "`^3.0.0`" + ` instead of ` + "`3.0.99`" + `
- Pre-releases only match a range that names a pre-release itself
- Preview the resolution without installing:
~~~
$ setup-pulumi resolve "^3.0.0"
~~~`,
		extLinks: []HttpLink{"https://github.com/pulumi/pulumi/releases"},
	}

	downloadFailureIssue = &Issue{
		id: DownloadFailureId,
		mdMsg: `
# Download failed!

A request to the version catalog or the release host did not succeed,
even after retrying.

## Things you can try:
- Check your network connection and proxy settings
- Check that the download host is reachable:
~~~
$ setup-pulumi url 3.1.2
~~~
- Increase ` + "`download.retries`" + ` or ` + "`download.timeout`" + ` in your config`,
	}

	rateLimitedIssue = &Issue{
		id: RateLimitedId,
		mdMsg: `
# GitHub API rate limit exceeded!

The GitHub release catalog refused the request.

## Things you can try:
- Set ` + "`GITHUB_TOKEN`" + ` to raise the limit
- Switch to the pulumi.com catalog:
~~~cue
catalog: source: "index"
~~~`,
	}

	checksumMismatchIssue = &Issue{
		id: ChecksumMismatchId,
		mdMsg: `
# Checksum mismatch!

The downloaded archive does not match the published SHA-256 checksum.
It was not installed.

## Things you can try:
- Retry the install, the download may have been truncated
- Check for a proxy that rewrites downloads`,
	}

	extractionErrorIssue = &Issue{
		id: ExtractionErrorId,
		mdMsg: `
# Failed to extract the archive!

The downloaded archive is corrupt or contains unsafe entries.

## Things you can try:
- Retry the install
- Enable checksum verification to catch truncated downloads:
~~~cue
verify_checksum: true
~~~`,
	}

	layoutErrorIssue = &Issue{
		id: LayoutErrorId,
		mdMsg: `
# Unexpected install layout!

The install directory already holds a previous install, or the archive
did not have the expected shape. Nothing was rolled back.

## Things you can try:
- Reinstall over the previous install:
~~~
$ setup-pulumi install --clean
~~~
- Remove the directory named in the error and retry`,
	}

	configLoadFailedIssue = &Issue{
		id: ConfigLoadFailedId,
		mdMsg: `
# Failed to load configuration!

## Things you can try:
- Check the file for CUE syntax errors
- Show where the configuration is read from:
~~~
$ setup-pulumi config path
~~~
- Write a fresh default file:
~~~
$ setup-pulumi config init
~~~`,
		extLinks: []HttpLink{"https://cuelang.org/docs/"},
	}

	issues = map[Id]*Issue{
		unsupportedPlatformIssue.Id(): unsupportedPlatformIssue,
		invalidSpecifierIssue.Id():    invalidSpecifierIssue,
		versionNotFoundIssue.Id():     versionNotFoundIssue,
		downloadFailureIssue.Id():     downloadFailureIssue,
		rateLimitedIssue.Id():         rateLimitedIssue,
		checksumMismatchIssue.Id():    checksumMismatchIssue,
		extractionErrorIssue.Id():     extractionErrorIssue,
		layoutErrorIssue.Id():         layoutErrorIssue,
		configLoadFailedIssue.Id():    configLoadFailedIssue,
	}
)

// Values returns every catalog entry ordered by Id.
func Values() []*Issue {
	ids := slices.Sorted(maps.Keys(issues))
	out := make([]*Issue, 0, len(ids))
	for _, id := range ids {
		out = append(out, issues[id])
	}
	return out
}

func Get(id Id) *Issue {
	return issues[id]
}
