// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package cli implements the formchat command tree.
//
// Commands:
//
//	formchat                     full-screen chat (same as "tui")
//	formchat tui                 full-screen chat
//	formchat chat                line-oriented chat for pipes and dumb terminals
//	formchat serve               run the /api backend in front of Ollama
//	formchat models              list the models the backend offers
//	formchat history show        print the saved transcript
//	formchat history export      write the transcript to markdown, json or html
//	formchat history clear       delete the saved transcript
//	formchat config show         print the effective configuration
//	formchat config init         write a default config file
//	formchat config path         print the config file location
//	formchat version             print version information
//
// When stdin is not a terminal, "tui" falls back to "chat".
package cli
