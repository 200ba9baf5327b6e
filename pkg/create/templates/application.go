package templates

// Manifest is the initial dependency manifest. Every runtime dependency of
// the application is pinned here.
const Manifest = `# Pin every runtime dependency of {{.Name}} here, one per line.
# Example:
# requests==2.31.0
`

// Descriptor is the initial project descriptor.
const Descriptor = `# Build settings for {{.Name}}.
baseImage: {{.BaseImage}}
entryModule: {{.EntryModule}}
manifest: requirements.txt
# environment:
#   APP_MODE: prod
# labels:
#   vendor: example.com
`

// IgnoreFile is the initial build context ignore file.
const IgnoreFile = `# Paths excluded from the build context, one pattern per line.
.git
.venv
__pycache__
*.pyc
`

// EntryModule is the initial foreground process module.
const EntryModule = `"""Entry point of {{.Name}}.

The container runs this module as its sole foreground process. Its exit
code becomes the container exit code.
"""

import sys


def main() -> int:
    print("{{.Name}} is running")
    return 0


if __name__ == "__main__":
    sys.exit(main())
`

// PackageInit marks the application tree as a python package so the entry
// module can be started with python -m.
const PackageInit = ``
