// Python-to-image (`p2i`) is a tool for building runnable container images
// from python applications. `p2i` produces ready-to-run images by layering a
// pinned dependency manifest and the application source tree onto a base
// runtime image, ready to use with `docker run`: the entry module becomes the
// container's foreground process and its exit code becomes the container exit
// code.
package pythontoimage
