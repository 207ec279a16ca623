// Package version holds the build version string reported by mepctl.
package version

// MEPCoreSemVer is the semantic version of the MEP subsystem.
const MEPCoreSemVer = "1.0.0"
