package build

import "errors"

var (
	ErrStep        = errors.New("step failed")
	ErrBuildFailed = errors.New("build failed")
	ErrNoBundle    = errors.New("built bundle not found")
	ErrNoReference = errors.New("no reference artifact")
)
