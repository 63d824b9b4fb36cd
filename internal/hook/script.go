package hook

// Marker identifies a pre-commit hook written by limitedwip.
const Marker = "# limitedwip"

// PreCommitScript is the pre-commit hook source. It asks limitedwip whether
// the staged change is small enough and skips the check when the binary is
// not on PATH.
const PreCommitScript = `#!/bin/sh
` + Marker + ` pre-commit hook, auto-generated, do not edit manually
# Remove with: limitedwip hook uninstall

command -v limitedwip >/dev/null 2>&1 || exit 0
exec limitedwip gate
`
