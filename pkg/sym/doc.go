// Package sym resolves debug symbols for kernel and driver images
// mapped in guest memory.
//
// A Mod answers five query kinds against one image's debug
// information: name to address, substring to addresses, structure
// member offset, structure size, and address to containing symbol.
// Two backends exist behind the same interface: one over Windows PDB
// files and one over DWARF files, located in symbol-store directories
// keyed by the identifier embedded in the image itself.
//
// Every lookup reports present-or-absent; a miss never distinguishes
// "symbol unknown" from "this backend does not support the query".
package sym
