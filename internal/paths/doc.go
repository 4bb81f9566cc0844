// Package paths defines the on-disk workspace layout.
//
// Everything a verification run touches (checkout, overlay mount point,
// builder image archives, built and device artifacts, bundletool) lives
// under a single XDG-resolved root so that the clean operation can reset
// the workspace wholesale.
package paths
