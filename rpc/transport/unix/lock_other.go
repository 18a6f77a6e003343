//go:build !unix

package unix

import "os"

// Without flock the bind itself is the only guard against a second server.
func flock(*os.File) error { return nil }

func unflock(*os.File) error { return nil }
