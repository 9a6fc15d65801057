// Package image loads and links the static protection image of a μCOMP
// program: the compartment policies, their access-control tables and the
// transition metadata of every compartment-crossing call site.
//
// The image is described in a line oriented text format:
//
//	; comment
//	.equ NAME VALUE
//	default NAME
//	compartment NAME ID PRIV
//	region INDEX BASE ATTR
//	acl START END
//	callsite NAME RETURN
//	dest TARGET COMPARTMENT
//
// region and acl lines apply to the most recent compartment, dest lines to
// the most recent call site. Any word may be a compile-time expression
// $(...), evaluated with every integer equate, the memory map, the MPU
// encoding constants and the rasr(size, ap, srd=0, xn=0) builtin in scope.
//
// Link writes the image into flash in the binary layouts the runtime reads,
// together with the supervisor-call stubs of every call site.
package image
