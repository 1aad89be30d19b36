/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package main

import (
	"fmt"
	"strings"
)

// claimPage offers the unclaimed role to an unidentified visitor. The
// claim is finalized server-side so the cookie is set before the board
// loads.
func claimPage(cfg *Config, gameID string, identity uint64) string {
	var page strings.Builder

	page.WriteString(`<!DOCTYPE html><html lang="en"><head><title>Join game</title></head><body>`)
	page.WriteString(`<h1>You have been challenged</h1>`)
	page.WriteString(`<p>Take the open seat to start guessing.</p>`)
	page.WriteString(fmt.Sprintf(`<form action="%s/game/%s/claim" method="post">`, cfg.prefix, gameID))
	page.WriteString(fmt.Sprintf(`<input type="hidden" name="user_id" value="%d">`, identity))
	page.WriteString(`<button type="submit">Join game</button>`)
	page.WriteString(`</form></body></html>`)

	return page.String()
}

// boardPage renders the game grid plus the chat/presence panel. All
// state updates arrive over the websocket; guesses go out as POSTs.
func boardPage(cfg *Config, gameID string) string {
	base := fmt.Sprintf("%s/game/%s", cfg.prefix, gameID)

	var board strings.Builder
	board.WriteString(`<table>`)
	for row := 0; row < cfg.rows; row++ {
		board.WriteString(`<tr>`)
		for col := 0; col < cfg.cols; col++ {
			board.WriteString(fmt.Sprintf(
				`<td><img src="%s/img/%d_%d" width="96" onclick="guess(%d,%d)" alt="character"></td>`,
				base, row, col, row, col,
			))
		}
		board.WriteString(`</tr>`)
	}
	board.WriteString(`</table>`)

	var page strings.Builder
	page.WriteString(`<!DOCTYPE html><html lang="en"><head><title>Guess Who</title><style>`)
	page.WriteString(`td img{cursor:pointer;object-fit:cover;height:96px;}`)
	page.WriteString(`#log{max-height:12em;overflow-y:auto;}`)
	page.WriteString(`</style></head><body>`)
	page.WriteString(`<h1>Guess Who</h1>`)
	page.WriteString(`<p>Your character: <img src="` + base + `/img/mine" width="96" alt="your character"></p>`)
	page.WriteString(`<p id="status">Click the character you think your opponent has.</p>`)
	page.WriteString(board.String())
	page.WriteString(`<div id="log"></div>`)
	page.WriteString(`<input id="chat" placeholder="Say something..."><button onclick="sendChat()">Send</button>`)
	page.WriteString(`<p><a href="` + base + `/qr">Share this game</a></p>`)
	page.WriteString(`<script>`)
	page.WriteString(boardScript(base))
	page.WriteString(`</script></body></html>`)

	return page.String()
}

func boardScript(base string) string {
	return `
const uid = document.cookie.split(";").map(c => c.trim())
	.filter(c => c.startsWith("user_id="))
	.map(c => c.slice("user_id=".length))[0];
const status = document.getElementById("status");
const log = document.getElementById("log");
const chat = document.getElementById("chat");

const proto = location.protocol === "https:" ? "wss://" : "ws://";
const ws = new WebSocket(proto + location.host + "` + base + `/ws");

function append(html) {
	const line = document.createElement("div");
	line.innerHTML = html;
	log.appendChild(line);
	log.scrollTop = log.scrollHeight;
}

ws.onmessage = (ev) => {
	const msg = JSON.parse(ev.data);
	switch (msg.type) {
	case "connected":
		append("Your opponent is here.");
		break;
	case "disconnected":
		append("Your opponent left.");
		break;
	case "correct":
		append("Your opponent found your character in " + msg.tries + " tries.");
		break;
	case "incorrect":
		append("Your opponent guessed wrong.");
		break;
	case "message":
		append(msg.content);
		break;
	case "error":
		append(msg.message);
		break;
	}
};

function guess(row, col) {
	fetch("` + base + `/guess?row=" + row + "&col=" + col, { method: "POST" })
		.then((res) => res.json())
		.then((data) => {
			status.textContent = data.correct ? "Correct!" : "Not them. Keep guessing.";
		});
}

function sendChat() {
	if (chat.value === "") {
		return;
	}
	ws.send(JSON.stringify({ type: "message", user_id: uid, content: chat.value }));
	chat.value = "";
}

chat.addEventListener("keydown", (ev) => {
	if (ev.key === "Enter") {
		sendChat();
	}
});
`
}
