// Package shellparams binds EFI_SHELL_PARAMETERS_PROTOCOL, through which the
// shell hands an application its command line and standard file handles.
package shellparams
