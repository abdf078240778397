package mongo

import (
	"testing"

	"chatql/internal/entity"
)

func TestAssemble(t *testing.T) {
	latest := "m1"
	convs := []conversationDocument{
		{Id: "c2", LatestMessageId: &latest},
		{Id: "c1"},
	}
	participants := []participantDocument{
		{Id: "p1", ConversationId: "c1", UserId: "u1", HasSeenLatestMessage: true},
		{Id: "p2", ConversationId: "c2", UserId: "u1"},
		{Id: "p3", ConversationId: "c2", UserId: "u2", HasSeenLatestMessage: true},
	}
	messages := []messageDocument{{Id: "m1", ConversationId: "c2", SenderId: "u2", Body: "hey"}}
	users := lookup{
		"u1": {Id: "u1", Username: "alice"},
		"u2": {Id: "u2", Username: "bob"},
	}

	got := assemble(convs, participants, messages, users)
	if len(got) != 2 || got[0].Id != "c2" || got[1].Id != "c1" {
		t.Fatalf("order = %+v", got)
	}

	c2 := got[0]
	if len(c2.Participants) != 2 || c2.Participants[1].User.Username != "bob" {
		t.Errorf("c2 participants = %+v", c2.Participants)
	}
	if c2.LatestMessage == nil || c2.LatestMessage.Sender.Username != "bob" || c2.LatestMessage.Body != "hey" {
		t.Errorf("c2 latest = %+v", c2.LatestMessage)
	}

	c1 := got[1]
	if len(c1.Participants) != 1 || !c1.Participants[0].HasSeenLatestMessage || c1.LatestMessage != nil {
		t.Errorf("c1 = %+v", c1)
	}
}

func TestAssembleUnknownUserAndNoParticipants(t *testing.T) {
	got := assemble(
		[]conversationDocument{{Id: "c1"}, {Id: "c2"}},
		[]participantDocument{{Id: "p1", ConversationId: "c1", UserId: "ghost"}},
		nil,
		lookup{},
	)

	if got[0].Participants[0].User != (entity.UserSummary{Id: "ghost"}) {
		t.Errorf("unknown user = %+v", got[0].Participants[0].User)
	}
	if got[1].Participants == nil || len(got[1].Participants) != 0 {
		t.Errorf("c2 participants = %+v", got[1].Participants)
	}
}
