// Package shell is the command environment that hosts the Lua console.
//
// The shell reads lines from a terminal widget in command mode and runs a
// small set of file and interpreter commands against a vfs.FileSystem. The
// lua command switches the widget into interactive mode, where key events
// go to a console.Adapter until the user leaves with Ctrl-C, Ctrl-D or
// exit(). The shell implements console.Host to get control back.
package shell
