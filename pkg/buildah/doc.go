// Package buildah supports buildah as an alternative container manager. It
// consumes a local buildah executable through command invocations, so images
// can be built without a docker daemon.
package buildah
