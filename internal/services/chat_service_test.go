package services

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/charlesng35/campushub/internal/database/testutil"
	"github.com/charlesng35/campushub/internal/models"
	"github.com/charlesng35/campushub/internal/realtime"
)

func TestChatServiceDirectRoomAndUnread(t *testing.T) {
	db := testutil.MustOpenTestDB(t, testutil.WithAutoMigrate())
	ctx := context.Background()

	alice := testutil.CreateUser(t, db, models.RoleStudent, "Alice")
	bob := testutil.CreateUser(t, db, models.RoleStudent, "Bob")
	carol := testutil.CreateUser(t, db, models.RoleStudent, "Carol")

	svc, err := NewChatService(db, realtime.NewHub(), nil)
	require.NoError(t, err)

	aliceViewer := Viewer{UserID: alice.ID, Role: models.RoleStudent}

	_, err = svc.CreateRoom(ctx, aliceViewer, CreateRoomInput{Type: models.ChatRoomDirect, ParticipantIDs: []string{bob.ID, carol.ID}})
	requireAppError(t, err, http.StatusBadRequest)

	_, err = svc.CreateRoom(ctx, aliceViewer, CreateRoomInput{Type: models.ChatRoomDirect, ParticipantIDs: []string{"ghost"}})
	requireAppError(t, err, http.StatusBadRequest)

	room, err := svc.CreateRoom(ctx, aliceViewer, CreateRoomInput{Type: models.ChatRoomDirect, ParticipantIDs: []string{bob.ID, alice.ID}})
	require.NoError(t, err)
	require.Len(t, room.Participants, 2)

	_, err = svc.SendMessage(ctx, alice.ID, SendMessageInput{RoomID: room.ID, Content: "   "})
	requireAppError(t, err, http.StatusBadRequest)

	_, err = svc.SendMessage(ctx, carol.ID, SendMessageInput{RoomID: room.ID, Content: "hi"})
	requireAppError(t, err, http.StatusNotFound)

	first, err := svc.SendMessage(ctx, alice.ID, SendMessageInput{RoomID: room.ID, Content: "hello"})
	require.NoError(t, err)
	_, err = svc.SendMessage(ctx, alice.ID, SendMessageInput{RoomID: room.ID, Content: "are you there?"})
	require.NoError(t, err)

	bobRooms, err := svc.ListRooms(ctx, bob.ID)
	require.NoError(t, err)
	require.Len(t, bobRooms, 1)
	require.EqualValues(t, 2, bobRooms[0].UnreadCount)

	aliceRooms, err := svc.ListRooms(ctx, alice.ID)
	require.NoError(t, err)
	require.EqualValues(t, 0, aliceRooms[0].UnreadCount)

	time.Sleep(5 * time.Millisecond)
	require.NoError(t, svc.MarkRead(ctx, bob.ID, room.ID))
	bobRooms, err = svc.ListRooms(ctx, bob.ID)
	require.NoError(t, err)
	require.EqualValues(t, 0, bobRooms[0].UnreadCount)

	messages, err := svc.ListMessages(ctx, bob.ID, room.ID, 0)
	require.NoError(t, err)
	require.Len(t, messages, 2)
	require.Equal(t, first.ID, messages[0].ID)

	err = svc.DeleteMessage(ctx, bob.ID, first.ID)
	requireAppError(t, err, http.StatusForbidden)
	require.NoError(t, svc.DeleteMessage(ctx, alice.ID, first.ID))

	messages, err = svc.ListMessages(ctx, bob.ID, room.ID, 0)
	require.NoError(t, err)
	require.Len(t, messages, 1)

	carolRooms, err := svc.ListRooms(ctx, carol.ID)
	require.NoError(t, err)
	require.Empty(t, carolRooms)
}

func TestChatServiceClassRoom(t *testing.T) {
	db := testutil.MustOpenTestDB(t, testutil.WithAutoMigrate())
	ctx := context.Background()

	teacher := testutil.CreateUser(t, db, models.RoleTeacher, "Grace Hopper")
	student := testutil.CreateUser(t, db, models.RoleStudent, "Katherine Johnson")
	class := testutil.CreateClass(t, db, teacher.ID, "Compilers")
	testutil.Enroll(t, db, class.ID, student.ID)

	hub := realtime.NewHub()
	received := make(chan realtime.Message, 4)
	cancel := hub.Listen(realtime.ClassStream(class.ID, realtime.KindMessages), func(m realtime.Message) {
		received <- m
	})
	defer cancel()

	svc, err := NewChatService(db, hub, NewChangePublisher(hub, nil))
	require.NoError(t, err)

	_, err = svc.CreateRoom(ctx, Viewer{UserID: student.ID, Role: models.RoleStudent}, CreateRoomInput{
		Type: models.ChatRoomClass, ClassID: class.ID,
	})
	requireAppError(t, err, http.StatusForbidden)

	room, err := svc.CreateRoom(ctx, Viewer{UserID: teacher.ID, Role: models.RoleTeacher}, CreateRoomInput{
		Name: "Compilers chat", Type: models.ChatRoomClass, ClassID: class.ID,
	})
	require.NoError(t, err)
	require.Len(t, room.Participants, 2)

	select {
	case msg := <-received:
		require.Equal(t, EventChatRoomCreated, msg.Event)
	case <-time.After(2 * time.Second):
		t.Fatal("expected class room event")
	}

	_, err = svc.SendMessage(ctx, student.ID, SendMessageInput{RoomID: room.ID, Content: "question about lab 2"})
	require.NoError(t, err)

	select {
	case msg := <-received:
		require.Equal(t, EventChatMessage, msg.Event)
	case <-time.After(2 * time.Second):
		t.Fatal("expected class message event")
	}
}

func TestChatServiceLateEnrollmentJoinsClassRoom(t *testing.T) {
	db := testutil.MustOpenTestDB(t, testutil.WithAutoMigrate())
	ctx := context.Background()

	teacher := testutil.CreateUser(t, db, models.RoleTeacher, "Grace Hopper")
	late := testutil.CreateUser(t, db, models.RoleStudent, "Dorothy Vaughan")
	class := testutil.CreateClass(t, db, teacher.ID, "Compilers")

	chat, err := NewChatService(db, nil, nil)
	require.NoError(t, err)
	classes, err := NewClassService(db, nil, nil)
	require.NoError(t, err)

	room, err := chat.CreateRoom(ctx, Viewer{UserID: teacher.ID, Role: models.RoleTeacher}, CreateRoomInput{
		Name: "Compilers chat", Type: models.ChatRoomClass, ClassID: class.ID,
	})
	require.NoError(t, err)
	require.Len(t, room.Participants, 1)

	_, err = classes.Enroll(ctx, Viewer{UserID: late.ID, Role: models.RoleStudent}, class.ID)
	require.NoError(t, err)

	rooms, err := chat.ListRooms(ctx, late.ID)
	require.NoError(t, err)
	require.Len(t, rooms, 1)
	require.Equal(t, room.ID, rooms[0].ID)

	_, err = chat.SendMessage(ctx, late.ID, SendMessageInput{RoomID: room.ID, Content: "hello everyone"})
	require.NoError(t, err)
}
