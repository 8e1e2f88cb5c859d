// Command singleapp hosts a single-instance application from the terminal.
//
// `singleapp run` claims the configured service or hands off to the instance
// that already owns it. `status`, `front`, and `attach` talk to running
// instances through the service registry, and `config init` writes a sample
// configuration file.
package main
