// Package convert implements the Conversion layer of spec.md §4.3: it
// maps between a Snapshot and the Store's tree layout, both directions.
//
//	<user>/<repo>/pr/<N>/head
//	<user>/<repo>/pr/<N>/state
//	<user>/<repo>/pr/<N>/title
//	<user>/<repo>/commit/<id>/exists
//	<user>/<repo>/commit/<id>/status/<context…>/state
//	<user>/<repo>/commit/<id>/status/<context…>/description
//	<user>/<repo>/commit/<id>/status/<context…>/target_url
//	<user>/<repo>/ref/<name…>/head
//
// File values always terminate with "\n"; readers trim surrounding
// whitespace. The "exists" leaf is this implementation's realization of
// spec.md's "marker directory for commit presence" — the Store's tree
// model (internal/store) has no notion of an empty directory, since a
// tree is built purely from a flat path→content file map, so presence of
// a commit with no status needs an explicit marker file to survive a
// round trip.
package convert

import (
	"path"
	"strconv"
	"strings"
)

const (
	leafHead        = "head"
	leafState       = "state"
	leafTitle       = "title"
	leafExists      = "exists"
	leafDescription = "description"
	leafTargetURL   = "target_url"
	leafWatched     = "watched"

	dirPR     = "pr"
	dirCommit = "commit"
	dirStatus = "status"
	dirRef    = "ref"
)

func repoRoot(user, repoName string) string {
	return path.Join(user, repoName)
}

func prRoot(user, repoName string, number int) string {
	return path.Join(repoRoot(user, repoName), dirPR, strconv.Itoa(number))
}

func commitRoot(user, repoName, id string) string {
	return path.Join(repoRoot(user, repoName), dirCommit, id)
}

func statusRoot(user, repoName, id string, ctx []string) string {
	return path.Join(append([]string{commitRoot(user, repoName, id), dirStatus}, ctx...)...)
}

func refRoot(user, repoName string, name []string) string {
	return path.Join(append([]string{repoRoot(user, repoName), dirRef}, name...)...)
}

func splitPath(p string) []string {
	p = strings.Trim(p, "/")
	if p == "" {
		return nil
	}
	return strings.Split(p, "/")
}

func encodeLine(s string) []byte {
	return []byte(s + "\n")
}

func decodeLine(b []byte) string {
	return strings.TrimSpace(string(b))
}
