// Package version reports the build of the apikit binary. Version and
// commit are stamped with -ldflags; anything left empty is filled from the
// module build info.
//
//	go build -ldflags "-X github.com/kbukum/apikit/version.Version=1.4.0" ./cmd/apikit
package version
