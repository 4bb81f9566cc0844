package apk

import "strings"

// Returns the local file name for an APK pulled from a device.
//
// On-device names follow the split convention: the base APK is "base.apk"
// and configuration splits are "split_config.<qualifier>.apk". Locally
// built splits use "base-<qualifier>.apk", so device pulls are renamed to
// line up with them:
//
//	base.apk                    -> base-master.apk
//	split_config.arm64_v8a.apk  -> base-arm64_v8a.apk
//	split_config.xxhdpi.apk     -> base-xxhdpi.apk
func DeviceSplitName(remote string) string {
	name := remote
	if i := strings.LastIndex(name, "/"); i >= 0 {
		name = name[i+1:]
	}

	if rest, ok := strings.CutPrefix(name, "split_config."); ok {
		return "base-" + rest
	}
	if name == "base.apk" {
		return "base-master.apk"
	}
	return name
}
