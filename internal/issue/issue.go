// SPDX-License-Identifier: MPL-2.0

package issue

import (
	"cmp"
	"slices"
	"strings"

	"github.com/charmbracelet/glamour"
	"golang.org/x/exp/maps"
)

const (
	PackageNotFoundId Id = iota + 1
	SourceUnavailableId
	ChecksumMismatchId
	ToolMissingId
	CommandFailedId
	ChrootNotFoundId
	SignatureInvalidId
	ConfigLoadFailedId
	PermissionDeniedId
	SandboxFailedId
)

type (
	Id int

	MarkdownMsg string

	HttpLink string

	// Issue is catalog guidance for one class of failure.
	Issue struct {
		id       Id
		mdMsg    MarkdownMsg
		docLinks []HttpLink
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

// Render formats the guidance with the given glamour style ("dark",
// "light", "notty", or a path to a style file).
func (i *Issue) Render(stylePath string) (string, error) {
	var md strings.Builder
	md.WriteString(string(i.mdMsg))
	if len(i.docLinks) > 0 || len(i.extLinks) > 0 {
		md.WriteString("\n\n## See also\n")
		for _, link := range append(i.DocLinks(), i.extLinks...) {
			md.WriteString("- <" + string(link) + ">\n")
		}
	}
	return render(md.String(), stylePath)
}

var (
	render = glamour.Render

	packageNotFoundIssue = &Issue{
		id: PackageNotFoundId,
		mdMsg: `
# Package not found!

None of the configured sources publishes the requested package for the
selected architecture.

## Things you can try:
- Check the spelling of the package name
- Add the repository that provides it:
~~~
$ hwprov fetch --source "http://deb.example.org/debian sid main" <package>
~~~

- Check the target architecture; only packages built for it (or for "all") are considered:
~~~
$ hwprov fetch --arch armhf <package>
~~~`,
		extLinks: []HttpLink{"https://wiki.debian.org/DebianRepository/Format"},
	}

	sourceUnavailableIssue = &Issue{
		id: SourceUnavailableId,
		mdMsg: `
# Repository unavailable!

A package index could not be downloaded from one of the configured sources.

## Things you can try:
- Check the source entry. Flat repositories end their suite in "/" (e.g. "file:/srv/hwpacks ./"),
  distributions need at least one component (e.g. "http://deb.example.org/debian sid main")
- Check network access to the repository host
- For local repositories, make sure a Packages, Packages.gz, Packages.xz or Packages.zst file exists`,
		extLinks: []HttpLink{"https://wiki.debian.org/DebianRepository/Format#Flat_Repository_Format"},
	}

	checksumMismatchIssue = &Issue{
		id: ChecksumMismatchId,
		mdMsg: `
# Downloaded archive is corrupt!

The archive does not match the size or SHA256 published in the repository index.

## Things you can try:
- Retry; a mirror may have been mid-sync
- Regenerate the index of a local repository:
~~~
$ dpkg-scanpackages . > Packages
~~~`,
	}

	toolMissingIssue = &Issue{
		id: ToolMissingId,
		mdMsg: `
# Required tool not found!

Staging a chroot needs host programs that are not installed.

## Things you can try:
- For a chroot of a different architecture, install the static emulator and image tools:
~~~
$ sudo apt-get install qemu-user-static qemu-utils
~~~

- Install the hwpack installer helper:
~~~
$ sudo apt-get install linaro-image-tools
~~~

- Or point hwprov at a development copy in your config:
~~~cue
chroot: installer: dev_path: "/path/to/linaro-hwpack-install"
~~~`,
	}

	commandFailedIssue = &Issue{
		id: CommandFailedId,
		mdMsg: `
# A command failed!

A privileged command exited with a non-zero status. Every change made to the
chroot so far has been reverted.

## Things you can try:
- Re-run with --verbose to see every command as it runs
- Re-run with --dry-run to print the commands without executing them
- If the hwpack installer failed, try --hwpack-force-yes for unsigned packages`,
	}

	chrootNotFoundIssue = &Issue{
		id: ChrootNotFoundId,
		mdMsg: `
# Chroot directory not usable!

The target root filesystem must be an existing directory with etc/, usr/bin/ and proc/.

## Things you can try:
- Check the --chroot path
- Unpack the root filesystem first`,
	}

	signatureInvalidIssue = &Issue{
		id: SignatureInvalidId,
		mdMsg: `
# Hwpack signature does not verify!

Nothing was installed.

## Things you can try:
- Import the signer's public key:
~~~
$ gpg --import signer.asc
~~~

- Check that each --hwpack-sig matches the --hwpack in the same position`,
	}

	configLoadFailedIssue = &Issue{
		id: ConfigLoadFailedId,
		mdMsg: `
# Failed to load configuration!

hwprov couldn't load your configuration file.

## Things you can try:
- Check the file for CUE (or TOML) syntax errors
- Print the effective configuration:
~~~
$ hwprov config show
~~~

- Write a fresh default file:
~~~
$ hwprov config init
~~~`,
		extLinks: []HttpLink{"https://cuelang.org/docs/"},
	}

	permissionDeniedIssue = &Issue{
		id: PermissionDeniedId,
		mdMsg: `
# Permission denied!

Staging a chroot mounts filesystems and replaces files owned by root.

## Things you can try:
- Make sure sudo works for your user:
~~~
$ sudo -v
~~~

- Use another escalation program:
~~~cue
privilege: escalate_command: "doas"
~~~

- Run hwprov as root, in which case no escalation program is used`,
	}

	sandboxFailedIssue = &Issue{
		id: SandboxFailedId,
		mdMsg: `
# Package sandbox failed!

The temporary package-management tree could not be created or removed.

## Things you can try:
- Check free space and permissions in your temporary directory
- Point TMPDIR at a writable location`,
	}

	issues = map[Id]*Issue{
		packageNotFoundIssue.Id():   packageNotFoundIssue,
		sourceUnavailableIssue.Id(): sourceUnavailableIssue,
		checksumMismatchIssue.Id():  checksumMismatchIssue,
		toolMissingIssue.Id():       toolMissingIssue,
		commandFailedIssue.Id():     commandFailedIssue,
		chrootNotFoundIssue.Id():    chrootNotFoundIssue,
		signatureInvalidIssue.Id():  signatureInvalidIssue,
		configLoadFailedIssue.Id():  configLoadFailedIssue,
		permissionDeniedIssue.Id():  permissionDeniedIssue,
		sandboxFailedIssue.Id():     sandboxFailedIssue,
	}
)

// Values returns every catalog entry ordered by Id.
func Values() []*Issue {
	all := slices.Collect(maps.Values(issues))
	slices.SortFunc(all, func(a, b *Issue) int {
		return cmp.Compare(a.id, b.id)
	})
	return all
}

func Get(id Id) *Issue {
	return issues[id]
}
