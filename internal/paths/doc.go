// Provides platform-appropriate paths for the release tool.
//
// All paths follow XDG conventions on Linux and platform-native conventions
// on macOS and Windows. The tool name "qibo-release" is used as the
// subdirectory under each base path. Every pipeline run gets its own
// directory, and every matrix cell gets its own workspace inside it, so
// concurrent cells never share a filesystem location.
package paths
