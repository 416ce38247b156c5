package cli

// Export internal functions for testing.

// RunDownload exports runDownload for testing.
var RunDownload = runDownload

// ParseDownloadOptions exports parseDownloadOptions for testing.
var ParseDownloadOptions = parseDownloadOptions

// DownloadOptions exports downloadOptions for testing.
type DownloadOptions = downloadOptions

// RunList exports runList for testing.
var RunList = runList

// SegmentKeys exports segmentKeys for testing.
var SegmentKeys = segmentKeys

// RunStats exports runStats for testing.
var RunStats = runStats

// RunPublish exports runPublish for testing.
var RunPublish = runPublish

// PublishOptions exports publishOptions for testing.
type PublishOptions = publishOptions

// RunConfigSet exports runConfigSet for testing.
var RunConfigSet = runConfigSet

// RunConfigGet exports runConfigGet for testing.
var RunConfigGet = runConfigGet

// RunConfigList exports runConfigList for testing.
var RunConfigList = runConfigList

// ClipDescription exports clipDescription for testing.
var ClipDescription = clipDescription

// RequireExists exports requireExists for testing.
var RequireExists = requireExists

// WriteFileAtomic exports writeFileAtomic for testing.
var WriteFileAtomic = writeFileAtomic
