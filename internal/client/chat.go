package client

// ChatSessionPath is the chat session collection.
const ChatSessionPath = "/api/chat/chat-session"

// ChatSessionPathOf returns the path of one chat session.
func ChatSessionPathOf(id ChatSessionID) string {
	return ChatSessionPath + "/" + id.String()
}

// ShareLink returns the public link of a shared chat session.
func (c *Client) ShareLink(id ChatSessionID) string {
	return c.baseURL + "/chat/shared/" + id.String()
}
