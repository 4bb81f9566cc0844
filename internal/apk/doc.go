// Package apk inspects and compares Android application packages.
//
// APKs and bundletool .apks archives are plain zip files, so comparison,
// split extraction, and hashing all operate at the zip-entry level. The
// comparison deliberately excludes signing material: an official release is
// signed with keys the verifier does not hold, and the point of the
// exercise is that everything else matches bit for bit.
package apk
