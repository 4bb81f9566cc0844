// Package runtime runs the upstream build inside a containerd container.
//
// The builder image is produced externally as an OCI archive (the upstream
// project ships its own Dockerfile), imported into containerd, and started
// with the project tree bind mounted at /project. Executing the build as an
// additional exec against a long-running task lets output stream live while
// the container stays reusable across steps.
//
// The fuse-overlayfs snapshotter keeps the whole lifecycle rootless.
package runtime
