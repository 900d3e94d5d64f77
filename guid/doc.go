// Package guid holds 128-bit protocol identifiers.
//
// A GUID is kept in the byte order the firmware compares, so a *GUID can be
// passed across the boundary as-is. Protocol packages declare their
// identifier once:
//
//	var ProtocolGUID = guid.MustParse("6302d008-7f9b-4f30-87ac-60c9fef5da4e")
package guid
