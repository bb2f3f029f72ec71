// Package client is a Go client for the boardrag HTTP API, suitable for chat
// front-ends that route board game questions to the rules service.
//
//	c, _ := client.New("http://localhost:8000", client.WithTimeout(60*time.Second))
//	ok, _ := c.IsBoardGameQuestion(ctx, "How do I get out of jail?")
//	if ok {
//	    res, _ := c.Query(ctx, "How do I get out of jail?")
//	    fmt.Println(client.FormatAnswer(res))
//	}
package client
