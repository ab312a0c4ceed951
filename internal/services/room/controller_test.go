package room

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/mcoot/drawguess/internal/dependencies/mocks"
	"github.com/mcoot/drawguess/internal/model"
	"github.com/mcoot/drawguess/internal/services/dictionary"
	"github.com/mcoot/drawguess/internal/services/registry"
	"github.com/mcoot/drawguess/internal/services/scoring"
	"github.com/mcoot/drawguess/internal/storage/memory"
	"github.com/mcoot/drawguess/internal/testutil"
)

// harness wires a Controller with deterministic dependencies
type harness struct {
	storage    *memory.Storage
	registry   *registry.Service
	clock      *mocks.MockClock
	random     *mocks.MockRandom
	dispatcher *testutil.RecordingDispatcher
	controller *Controller
}

func newHarness(cfg Config) *harness {
	h := &harness{
		storage:    memory.New(),
		registry:   registry.New(),
		clock:      mocks.NewMockClock(time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)),
		random:     mocks.NewMockRandom(),
		dispatcher: testutil.NewRecordingDispatcher(),
	}
	dict := dictionary.New(h.storage, h.random)
	_ = dict.LoadWords(dictionary.DefaultWords)

	h.controller = NewController(
		cfg,
		h.registry,
		dict,
		scoring.New(),
		h.storage,
		h.dispatcher,
		h.clock,
		h.random,
		testutil.NopLogger(),
	)
	return h
}

type ControllerSuite struct {
	suite.Suite
	h          *harness
	controller *Controller
	clock      *mocks.MockClock
	random     *mocks.MockRandom
	events     *testutil.RecordingDispatcher
	ctx        context.Context
}

func TestControllerSuite(t *testing.T) {
	suite.Run(t, new(ControllerSuite))
}

func (s *ControllerSuite) SetupTest() {
	s.h = newHarness(DefaultConfig())
	s.controller = s.h.controller
	s.clock = s.h.clock
	s.random = s.h.random
	s.events = s.h.dispatcher
	s.ctx = context.Background()
}

func (s *ControllerSuite) join(id, code string) *JoinResult {
	res, err := s.controller.JoinRoom(s.ctx, model.SessionID(id), "name-"+id, "#123456", code)
	s.Require().NoError(err)
	return res
}

func (s *ControllerSuite) room(code string) *model.Room {
	r, err := s.controller.GetRoom(s.ctx, code)
	s.Require().NoError(err)
	return r
}

// startDrawing joins p1 and p2 to ABCD, starts the game and has p1 pick "apple"
func (s *ControllerSuite) startDrawing() {
	s.join("p1", "ABCD")
	s.join("p2", "ABCD")
	s.Require().NoError(s.controller.StartGame(s.ctx, "p1", "ABCD", StartOptions{}))
	s.Require().NoError(s.controller.SelectWord(s.ctx, "p1", "ABCD", "apple"))
}

// Join tests

func (s *ControllerSuite) TestJoinCreatesRoom() {
	res := s.join("p1", "ABCD")

	s.Equal(model.RoomCode("ABCD"), res.RoomCode)
	s.True(res.IsHost)
	s.True(res.Created)

	r := s.room("ABCD")
	s.Equal(model.PhaseLobby, r.Phase)
	s.Equal(0, r.Round)
	s.Equal(60, r.TimeLeft)
	s.Equal(0, r.Scores["p1"])

	s.Equal([]model.EventType{model.EventJoinedRoomSuccess, model.EventRoomPlayers}, s.events.Types())

	ack, _ := s.events.Last(model.EventJoinedRoomSuccess)
	s.Equal(model.ScopeDirect, ack.Scope)
	s.Equal([]model.SessionID{"p1"}, ack.Recipients)
	s.Equal(model.JoinedRoomSuccessPayload{IsHost: true, SessionID: "p1", RoomCode: "ABCD"}, ack.Payload)
}

func (s *ControllerSuite) TestJoinIsCaseInsensitive() {
	s.join("p1", "abcd")
	res := s.join("p2", " ABCD ")

	s.Equal(model.RoomCode("ABCD"), res.RoomCode)
	s.False(res.IsHost)
	s.False(res.Created)
	s.Len(s.room("abcd").Members, 2)
	s.Equal(1, s.controller.RoomCount())
}

func (s *ControllerSuite) TestJoinBroadcastsPlayersToEveryone() {
	s.join("p1", "ABCD")
	s.join("p2", "ABCD")

	players, ok := s.events.Last(model.EventRoomPlayers)
	s.Require().True(ok)
	s.ElementsMatch([]model.SessionID{"p1", "p2"}, players.Recipients)

	list := players.Payload.([]model.Player)
	s.Require().Len(list, 2)
	s.Equal(model.SessionID("p1"), list[0].ID)
	s.Equal("name-p1", list[0].Name)
	s.False(list[0].IsDrawer)
}

func (s *ControllerSuite) TestJoinIsIdempotent() {
	s.startDrawing()
	s.clock.Advance(20 * time.Second)
	s.Require().NoError(s.controller.Chat(s.ctx, "p2", "ABCD", "apple"))

	s.join("p2", "ABCD")

	r := s.room("ABCD")
	s.Len(r.Members, 2)
	s.Equal(667, r.Scores["p2"])
}

func (s *ControllerSuite) TestJoinRequiresName() {
	_, err := s.controller.JoinRoom(s.ctx, "p1", "", "#fff", "ABCD")
	s.ErrorIs(err, model.ErrMalformedPayload)
	s.Equal(0, s.controller.RoomCount())
}

func (s *ControllerSuite) TestJoinAssignsColorWhenMissing() {
	s.random.QueueString("00ff00")

	_, err := s.controller.JoinRoom(s.ctx, "p1", "Alice", "", "ABCD")
	s.Require().NoError(err)

	s.Equal("#00ff00", s.room("ABCD").Members[0].Color)
}

func (s *ControllerSuite) TestJoinWithoutCodeGeneratesOne() {
	s.random.QueueString("wxyz")

	res, err := s.controller.JoinRoom(s.ctx, "p1", "Alice", "#fff", "")
	s.Require().NoError(err)

	s.Equal(model.RoomCode("WXYZ"), res.RoomCode)
	s.True(res.Created)
}

func (s *ControllerSuite) TestJoinWithoutCodeSkipsTakenCodes() {
	s.join("p1", "WXYZ")
	s.random.QueueString("WXYZ", "QRST")

	res, err := s.controller.JoinRoom(s.ctx, "p2", "Bob", "#fff", "")
	s.Require().NoError(err)
	s.Equal(model.RoomCode("QRST"), res.RoomCode)
}

func (s *ControllerSuite) TestJoinWithoutCodeGivesUp() {
	// The mock returns "" once the queue is empty
	_, err := s.controller.JoinRoom(s.ctx, "p1", "Alice", "#fff", "")
	s.ErrorIs(err, model.ErrInvalidRoomCode)
}

func (s *ControllerSuite) TestJoinAnotherRoomLeavesFirst() {
	s.join("p1", "ABCD")
	s.join("p2", "ABCD")

	s.join("p2", "WXYZ")

	s.Len(s.room("ABCD").Members, 1)
	s.Len(s.room("WXYZ").Members, 1)

	profile, err := s.h.registry.Lookup("p2")
	s.Require().NoError(err)
	s.Equal(model.RoomCode("WXYZ"), profile.RoomCode)
}

func (s *ControllerSuite) TestLateJoinerCatchesUp() {
	s.startDrawing()
	s.clock.Advance(5 * time.Second)
	s.events.Reset()

	s.join("p3", "ABCD")

	s.Len(s.events.To("p3", model.EventGameStarted), 1)
	timer := s.events.To("p3", model.EventUpdateTimer)
	s.Require().Len(timer, 1)
	s.Equal(model.UpdateTimerPayload{TimeLeft: 55}, timer[0].Payload)
	blanks := s.events.To("p3", model.EventSetWordBlanks)
	s.Require().Len(blanks, 1)
	s.Equal(model.SetWordBlanksPayload{Length: 5}, blanks[0].Payload)

	// Catch-up is private
	s.Empty(s.events.To("p1", model.EventGameStarted))
}

// Start tests

func (s *ControllerSuite) TestStartGame() {
	s.join("p1", "ABCD")
	s.join("p2", "ABCD")
	s.events.Reset()

	err := s.controller.StartGame(s.ctx, "p2", "ABCD", StartOptions{})
	s.Require().NoError(err)

	r := s.room("ABCD")
	s.Equal(model.PhaseChoosingWord, r.Phase)
	s.Equal(1, r.Round)
	s.Equal(3, r.TotalRounds)
	s.Equal(model.SessionID("p1"), r.CurrentDrawerID) // First joiner, not the starter
	s.Equal(60, r.TimeLeft)

	s.Equal([]model.EventType{
		model.EventGameStarted,
		model.EventRoomPlayers,
		model.EventChooseWord,
		model.EventUpdateTimer,
	}, s.events.Types())

	started, _ := s.events.Last(model.EventGameStarted)
	s.Equal(model.GameStartedPayload{Round: 1, TotalRounds: 3}, started.Payload)

	choose, _ := s.events.Last(model.EventChooseWord)
	s.Equal([]model.SessionID{"p1"}, choose.Recipients)
	s.Equal([]string{"apple", "car", "mountain"}, choose.Payload)
}

func (s *ControllerSuite) TestStartGameWithOptions() {
	s.join("p1", "ABCD")

	err := s.controller.StartGame(s.ctx, "p1", "", StartOptions{TotalRounds: 5})
	s.Require().NoError(err)
	s.Equal(5, s.room("ABCD").TotalRounds)
}

func (s *ControllerSuite) TestStartGameWhileInProgress() {
	s.join("p1", "ABCD")
	s.Require().NoError(s.controller.StartGame(s.ctx, "p1", "ABCD", StartOptions{}))

	err := s.controller.StartGame(s.ctx, "p1", "ABCD", StartOptions{})
	s.ErrorIs(err, model.ErrGameInProgress)
}

func (s *ControllerSuite) TestStartGameUnknownSession() {
	err := s.controller.StartGame(s.ctx, "ghost", "ABCD", StartOptions{})
	s.ErrorIs(err, model.ErrSessionNotFound)
}

func (s *ControllerSuite) TestStartGameWrongRoomCode() {
	s.join("p1", "ABCD")
	s.join("p2", "WXYZ")

	err := s.controller.StartGame(s.ctx, "p1", "WXYZ", StartOptions{})
	s.ErrorIs(err, model.ErrNotMember)
	s.Equal(model.PhaseLobby, s.room("WXYZ").Phase)
}

// Word selection tests

func (s *ControllerSuite) TestSelectWord() {
	s.join("p1", "ABCD")
	s.join("p2", "ABCD")
	s.join("p3", "ABCD")
	s.Require().NoError(s.controller.StartGame(s.ctx, "p1", "ABCD", StartOptions{}))
	s.events.Reset()

	err := s.controller.SelectWord(s.ctx, "p1", "ABCD", "Apple")
	s.Require().NoError(err)

	r := s.room("ABCD")
	s.Equal(model.PhaseDrawing, r.Phase)
	s.Equal("apple", r.CurrentWord)
	s.Empty(r.GuessedThisRound)

	blanks, ok := s.events.Last(model.EventSetWordBlanks)
	s.Require().True(ok)
	s.Equal(model.ScopeOthers, blanks.Scope)
	s.ElementsMatch([]model.SessionID{"p2", "p3"}, blanks.Recipients)
	s.Equal(model.SetWordBlanksPayload{Length: 5}, blanks.Payload)

	draw, ok := s.events.Last(model.EventStartDrawing)
	s.Require().True(ok)
	s.Equal([]model.SessionID{"p1"}, draw.Recipients)
}

func (s *ControllerSuite) TestSelectWordNotDrawer() {
	s.join("p1", "ABCD")
	s.join("p2", "ABCD")
	s.Require().NoError(s.controller.StartGame(s.ctx, "p1", "ABCD", StartOptions{}))

	err := s.controller.SelectWord(s.ctx, "p2", "ABCD", "apple")
	s.ErrorIs(err, model.ErrNotDrawer)
}

func (s *ControllerSuite) TestSelectWordNotOffered() {
	s.join("p1", "ABCD")
	s.Require().NoError(s.controller.StartGame(s.ctx, "p1", "ABCD", StartOptions{}))

	err := s.controller.SelectWord(s.ctx, "p1", "ABCD", "tree")
	s.ErrorIs(err, model.ErrInvalidWord)
}

func (s *ControllerSuite) TestSelectWordOutsideChoosing() {
	s.join("p1", "ABCD")

	err := s.controller.SelectWord(s.ctx, "p1", "ABCD", "apple")
	s.ErrorIs(err, model.ErrNotChoosing)
}

// Guess tests

func (s *ControllerSuite) TestCorrectGuessScenario() {
	s.startDrawing()
	s.clock.Advance(20 * time.Second)
	s.Equal(40, s.room("ABCD").TimeLeft)
	s.events.Reset()

	err := s.controller.Chat(s.ctx, "p2", "ABCD", "apple")
	s.Require().NoError(err)

	guess, ok := s.events.Last(model.EventCorrectGuess)
	s.Require().True(ok)
	s.Equal(model.CorrectGuessPayload{PlayerID: "p2", Sender: "name-p2", Points: 667}, guess.Payload)
	s.ElementsMatch([]model.SessionID{"p1", "p2"}, guess.Recipients)

	scores, ok := s.events.Last(model.EventScoresUpdate)
	s.Require().True(ok)
	s.Equal(667, scores.Payload.(model.ScoresPayload).Scores["p2"])

	s.Empty(s.events.OfType(model.EventChatMessage))
	s.Equal(667, s.room("ABCD").Scores["p2"])

	// A repeat is plain chat and scores nothing
	s.events.Reset()
	s.Require().NoError(s.controller.Chat(s.ctx, "p2", "ABCD", " Apple "))
	chats := s.events.OfType(model.EventChatMessage)
	s.Require().Len(chats, 1)
	s.Equal(model.ChatMessagePayload{Sender: "name-p2", Text: " Apple "}, chats[0].Payload)
	s.Empty(s.events.OfType(model.EventCorrectGuess))
	s.Empty(s.events.OfType(model.EventScoresUpdate))
	s.Equal(667, s.room("ABCD").Scores["p2"])
}

func (s *ControllerSuite) TestDepartedGuesserLeavesGuessedSet() {
	s.startDrawing()
	s.join("p3", "ABCD")
	s.Require().NoError(s.controller.Chat(s.ctx, "p2", "ABCD", "apple"))
	s.Contains(s.room("ABCD").GuessedThisRound, model.SessionID("p2"))

	s.Require().NoError(s.controller.LeaveRoom(s.ctx, "p2"))

	r := s.room("ABCD")
	s.Empty(r.GuessedThisRound)
	s.Equal(1000, r.Scores["p2"])
}

func (s *ControllerSuite) TestWrongGuessIsChat() {
	s.startDrawing()
	s.events.Reset()

	s.Require().NoError(s.controller.Chat(s.ctx, "p2", "ABCD", "  banana "))

	msg, ok := s.events.Last(model.EventChatMessage)
	s.Require().True(ok)
	s.Equal(model.ChatMessagePayload{Sender: "name-p2", Text: "  banana "}, msg.Payload)
	s.Empty(s.events.OfType(model.EventCorrectGuess))
}

func (s *ControllerSuite) TestDrawerCannotGuess() {
	s.startDrawing()
	s.events.Reset()

	s.Require().NoError(s.controller.Chat(s.ctx, "p1", "ABCD", "apple"))

	s.Empty(s.events.All())
	s.Equal(0, s.room("ABCD").Scores["p1"])
}

func (s *ControllerSuite) TestGuessWhileChoosingIsChat() {
	s.join("p1", "ABCD")
	s.join("p2", "ABCD")
	s.Require().NoError(s.controller.StartGame(s.ctx, "p1", "ABCD", StartOptions{}))
	s.events.Reset()

	s.Require().NoError(s.controller.Chat(s.ctx, "p2", "ABCD", "apple"))

	s.Len(s.events.OfType(model.EventChatMessage), 1)
	s.Equal(0, s.room("ABCD").Scores["p2"])
}

func (s *ControllerSuite) TestEmptyChatDropped() {
	s.join("p1", "ABCD")
	s.events.Reset()

	err := s.controller.Chat(s.ctx, "p1", "ABCD", "   ")
	s.ErrorIs(err, model.ErrMalformedPayload)
	s.Empty(s.events.All())
}

func (s *ControllerSuite) TestChatFromNonMember() {
	s.join("p1", "ABCD")

	err := s.controller.Chat(s.ctx, "ghost", "ABCD", "hi")
	s.ErrorIs(err, model.ErrSessionNotFound)
}

func (s *ControllerSuite) TestConcurrentGuessesScoreOnce() {
	s.join("p1", "ABCD")
	for i := 0; i < 8; i++ {
		s.join(fmt.Sprintf("g%d", i), "ABCD")
	}
	s.Require().NoError(s.controller.StartGame(s.ctx, "p1", "ABCD", StartOptions{}))
	s.Require().NoError(s.controller.SelectWord(s.ctx, "p1", "ABCD", "apple"))

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		for attempt := 0; attempt < 5; attempt++ {
			wg.Add(1)
			go func(id model.SessionID) {
				defer wg.Done()
				_ = s.controller.Chat(s.ctx, id, "ABCD", "apple")
			}(model.SessionID(fmt.Sprintf("g%d", i)))
		}
	}
	wg.Wait()

	s.Len(s.events.OfType(model.EventCorrectGuess), 8)
	r := s.room("ABCD")
	s.Len(r.GuessedThisRound, 8)
	for i := 0; i < 8; i++ {
		s.Equal(scoring.MaxPoints, r.Scores[model.SessionID(fmt.Sprintf("g%d", i))])
	}
}

// Countdown and rotation tests

func (s *ControllerSuite) TestCountdownTicks() {
	s.join("p1", "ABCD")
	s.Require().NoError(s.controller.StartGame(s.ctx, "p1", "ABCD", StartOptions{}))
	s.events.Reset()

	s.clock.Advance(3 * time.Second)

	ticks := s.events.OfType(model.EventUpdateTimer)
	s.Require().Len(ticks, 3)
	s.Equal(model.UpdateTimerPayload{TimeLeft: 59}, ticks[0].Payload)
	s.Equal(model.UpdateTimerPayload{TimeLeft: 57}, ticks[2].Payload)
	s.Equal(1, s.clock.PendingTimers())
}

func (s *ControllerSuite) TestCountdownRunsWhileChoosing() {
	s.join("p1", "ABCD")
	s.Require().NoError(s.controller.StartGame(s.ctx, "p1", "ABCD", StartOptions{}))

	s.clock.Advance(10 * time.Second)
	s.Equal(50, s.room("ABCD").TimeLeft)

	s.Require().NoError(s.controller.SelectWord(s.ctx, "p1", "ABCD", "car"))
	s.Equal(50, s.room("ABCD").TimeLeft)
}

func (s *ControllerSuite) TestRoundTimeoutRotatesDrawer() {
	s.startDrawing()
	s.events.Reset()

	s.clock.Advance(60 * time.Second)

	ended, ok := s.events.Last(model.EventRoundEnded)
	s.Require().True(ok)
	s.Equal(model.RoundEndedPayload{Round: 1}, ended.Payload)
	s.Len(s.events.OfType(model.EventClearCanvas), 1)

	started, ok := s.events.Last(model.EventRoundStarted)
	s.Require().True(ok)
	s.Equal(model.RoundStartedPayload{Round: 2, TotalRounds: 3, DrawerID: "p2"}, started.Payload)

	s.Len(s.events.To("p2", model.EventChooseWord), 1)
	s.Empty(s.events.To("p1", model.EventChooseWord))

	r := s.room("ABCD")
	s.Equal(2, r.Round)
	s.Equal(model.SessionID("p2"), r.CurrentDrawerID)
	s.Equal(model.PhaseChoosingWord, r.Phase)
	s.Equal(60, r.TimeLeft)
	s.Empty(r.CurrentWord)
}

func (s *ControllerSuite) TestSingleMemberRotation() {
	s.join("p1", "ABCD")
	s.Require().NoError(s.controller.StartGame(s.ctx, "p1", "ABCD", StartOptions{}))

	s.clock.Advance(60 * time.Second)

	r := s.room("ABCD")
	s.Equal(2, r.Round)
	s.Equal(model.SessionID("p1"), r.CurrentDrawerID)
	s.Equal(model.PhaseChoosingWord, r.Phase)
}

func (s *ControllerSuite) TestGameOver() {
	s.join("p1", "ABCD")
	s.join("p2", "ABCD")
	s.Require().NoError(s.controller.StartGame(s.ctx, "p1", "ABCD", StartOptions{TotalRounds: 2}))
	s.Require().NoError(s.controller.SelectWord(s.ctx, "p1", "ABCD", "apple"))
	s.clock.Advance(30 * time.Second)
	s.Require().NoError(s.controller.Chat(s.ctx, "p2", "ABCD", "apple"))

	s.clock.Advance(90 * time.Second)

	over, ok := s.events.Last(model.EventGameOver)
	s.Require().True(ok)
	s.Equal(500, over.Payload.(model.ScoresPayload).Scores["p2"])

	r := s.room("ABCD")
	s.Equal(model.PhaseGameOver, r.Phase)
	s.Equal(2, r.Round)
	s.Equal(model.SessionID(""), r.CurrentDrawerID)
	s.Equal(0, s.clock.PendingTimers())

	// No further ticks after the game ends
	ticks := len(s.events.OfType(model.EventUpdateTimer))
	s.clock.Advance(10 * time.Second)
	s.Len(s.events.OfType(model.EventUpdateTimer), ticks)

	s.Require().NoError(s.controller.Shutdown(s.ctx))
	history, err := s.controller.GetHistory(s.ctx, "abcd")
	s.Require().NoError(err)
	s.Require().Len(history, 1)
	s.Equal(1, history[0].GameNumber)
	s.Equal(model.SessionID("p2"), history[0].Winner)
	s.Equal(500, history[0].FinalScores["p2"])
}

func (s *ControllerSuite) TestRestartKeepsScoresUnlessReset() {
	s.startDrawing()
	s.clock.Advance(20 * time.Second)
	s.Require().NoError(s.controller.Chat(s.ctx, "p2", "ABCD", "apple"))
	s.clock.Advance(160 * time.Second)
	s.Require().Equal(model.PhaseGameOver, s.room("ABCD").Phase)

	s.Require().NoError(s.controller.StartGame(s.ctx, "p1", "ABCD", StartOptions{}))
	r := s.room("ABCD")
	s.Equal(1, r.Round)
	s.Equal(model.SessionID("p1"), r.CurrentDrawerID)
	s.Equal(667, r.Scores["p2"])

	s.clock.Advance(180 * time.Second)
	s.Require().NoError(s.controller.StartGame(s.ctx, "p1", "ABCD", StartOptions{ResetScores: true}))
	s.Equal(0, s.room("ABCD").Scores["p2"])
}

// Disconnect and cleanup tests

func (s *ControllerSuite) TestNonDrawerDisconnect() {
	s.startDrawing()
	s.join("p3", "ABCD")
	s.events.Reset()

	s.controller.Disconnect(s.ctx, "p3")

	players, ok := s.events.Last(model.EventRoomPlayers)
	s.Require().True(ok)
	s.ElementsMatch([]model.SessionID{"p1", "p2"}, players.Recipients)
	s.Len(players.Payload.([]model.Player), 2)

	r := s.room("ABCD")
	s.Equal(model.SessionID("p1"), r.CurrentDrawerID)
	s.Equal("apple", r.CurrentWord)
	_, err := s.h.registry.Lookup("p3")
	s.ErrorIs(err, model.ErrSessionNotFound)
}

func (s *ControllerSuite) TestDrawerDisconnectRotatesImmediately() {
	s.startDrawing()
	s.join("p3", "ABCD")
	s.clock.Advance(10 * time.Second)
	s.events.Reset()

	s.controller.Disconnect(s.ctx, "p1")

	r := s.room("ABCD")
	s.Equal(model.SessionID("p2"), r.CurrentDrawerID)
	s.Equal(model.PhaseChoosingWord, r.Phase)
	s.Empty(r.CurrentWord)
	s.Equal(1, r.Round)
	s.Equal(50, r.TimeLeft)

	s.Len(s.events.To("p2", model.EventChooseWord), 1)
	players, ok := s.events.Last(model.EventRoomPlayers)
	s.Require().True(ok)
	s.True(players.Payload.([]model.Player)[0].IsDrawer)

	// The countdown was not reset
	s.clock.Advance(time.Second)
	s.Equal(49, s.room("ABCD").TimeLeft)
}

func (s *ControllerSuite) TestScoresSurviveDisconnect() {
	s.startDrawing()
	s.clock.Advance(20 * time.Second)
	s.Require().NoError(s.controller.Chat(s.ctx, "p2", "ABCD", "apple"))

	s.controller.Disconnect(s.ctx, "p2")

	r := s.room("ABCD")
	s.False(r.IsMember("p2"))
	s.Equal(667, r.Scores["p2"])
}

func (s *ControllerSuite) TestEmptyRoomIsCleanedUp() {
	var deleted []model.RoomCode
	s.controller.OnRoomDeleted(func(code model.RoomCode) { deleted = append(deleted, code) })

	s.startDrawing()
	s.controller.Disconnect(s.ctx, "p1")
	s.controller.Disconnect(s.ctx, "p2")

	// Round timer stopped, cleanup pending
	s.Equal(1, s.clock.PendingTimers())

	s.clock.Advance(59 * time.Second)
	s.Equal(1, s.controller.RoomCount())
	s.Empty(deleted)

	s.clock.Advance(time.Second)
	s.Equal(0, s.controller.RoomCount())
	s.Equal([]model.RoomCode{"ABCD"}, deleted)
	s.Equal(0, s.clock.PendingTimers())

	_, err := s.controller.GetRoom(s.ctx, "ABCD")
	s.ErrorIs(err, model.ErrRoomNotFound)
}

func (s *ControllerSuite) TestRejoinCancelsCleanup() {
	s.startDrawing()
	s.clock.Advance(20 * time.Second)
	s.Require().NoError(s.controller.Chat(s.ctx, "p2", "ABCD", "apple"))
	s.controller.Disconnect(s.ctx, "p1")
	s.controller.Disconnect(s.ctx, "p2")

	s.clock.Advance(30 * time.Second)
	res := s.join("p3", "ABCD")
	s.False(res.Created)

	r := s.room("ABCD")
	s.Equal(1, r.Round)
	s.Equal(667, r.Scores["p2"])
	s.Equal(model.SessionID("p3"), r.CurrentDrawerID)
	s.Equal(model.PhaseChoosingWord, r.Phase)
	s.Equal(40, r.TimeLeft)
	s.Len(s.events.To("p3", model.EventChooseWord), 1)

	// The old grace window passes without deleting the room
	s.clock.Advance(30 * time.Second)
	s.Equal(1, s.controller.RoomCount())
	s.Equal(10, s.room("ABCD").TimeLeft)
}

func (s *ControllerSuite) TestStaleCleanupIsIgnored() {
	s.join("p1", "ABCD")
	s.controller.Disconnect(s.ctx, "p1")

	sess := s.controller.lookup("ABCD")
	s.Require().NotNil(sess)
	sess.mu.Lock()
	staleGen := sess.cleanupGen
	sess.mu.Unlock()

	// Rejoin then leave again: a new grace window starts
	s.join("p1", "ABCD")
	s.controller.Disconnect(s.ctx, "p1")

	s.controller.cleanup(sess, staleGen)
	s.Equal(1, s.controller.RoomCount())

	s.clock.Advance(60 * time.Second)
	s.Equal(0, s.controller.RoomCount())
}

func (s *ControllerSuite) TestStaleTickIsIgnored() {
	s.join("p1", "ABCD")
	s.Require().NoError(s.controller.StartGame(s.ctx, "p1", "ABCD", StartOptions{}))

	sess := s.controller.lookup("ABCD")
	sess.mu.Lock()
	staleGen := sess.roundGen - 1
	sess.mu.Unlock()
	s.events.Reset()

	s.controller.tick(sess, staleGen)

	s.Empty(s.events.All())
	s.Equal(60, s.room("ABCD").TimeLeft)
}

func (s *ControllerSuite) TestTickAfterDeletionIsIgnored() {
	s.join("p1", "ABCD")
	s.Require().NoError(s.controller.StartGame(s.ctx, "p1", "ABCD", StartOptions{}))
	sess := s.controller.lookup("ABCD")
	sess.mu.Lock()
	gen := sess.roundGen
	sess.mu.Unlock()

	s.controller.Disconnect(s.ctx, "p1")
	s.clock.Advance(60 * time.Second)
	s.Require().Equal(0, s.controller.RoomCount())
	s.events.Reset()

	s.controller.tick(sess, gen)
	s.Empty(s.events.All())
}

func (s *ControllerSuite) TestRecreatedRoomStartsFresh() {
	s.startDrawing()
	s.controller.Disconnect(s.ctx, "p1")
	s.controller.Disconnect(s.ctx, "p2")
	s.clock.Advance(60 * time.Second)

	res := s.join("p3", "ABCD")
	s.True(res.Created)
	s.True(res.IsHost)

	r := s.room("ABCD")
	s.Equal(model.PhaseLobby, r.Phase)
	s.Equal(0, r.Round)
	s.NotContains(r.Scores, model.SessionID("p2"))
}

func (s *ControllerSuite) TestCleanupDeletesHistory() {
	s.join("p1", "ABCD")
	s.Require().NoError(s.controller.StartGame(s.ctx, "p1", "ABCD", StartOptions{TotalRounds: 1}))
	s.clock.Advance(60 * time.Second)
	s.Require().NoError(s.controller.Shutdown(s.ctx))

	history, _ := s.controller.GetHistory(s.ctx, "ABCD")
	s.Require().Len(history, 1)

	s.controller.Disconnect(s.ctx, "p1")
	s.clock.Advance(60 * time.Second)
	s.Require().NoError(s.controller.Shutdown(s.ctx))

	history, _ = s.controller.GetHistory(s.ctx, "ABCD")
	s.Empty(history)
}

func (s *ControllerSuite) TestLeaveRoomKeepsRegistration() {
	s.join("p1", "ABCD")
	s.join("p2", "ABCD")

	s.Require().NoError(s.controller.LeaveRoom(s.ctx, "p2"))

	profile, err := s.h.registry.Lookup("p2")
	s.Require().NoError(err)
	s.False(profile.InRoom())
	s.Len(s.room("ABCD").Members, 1)

	s.ErrorIs(s.controller.LeaveRoom(s.ctx, "p2"), model.ErrNotMember)
}

// Relay tests

func (s *ControllerSuite) TestStrokeRelayedToOthers() {
	s.startDrawing()
	s.join("p3", "ABCD")
	s.events.Reset()

	raw := json.RawMessage(`{"x":10,"y":20}`)
	err := s.controller.RelayStroke(s.ctx, "p1", "ABCD", model.EventPathPoint, raw)
	s.Require().NoError(err)

	env, ok := s.events.Last(model.EventPathPoint)
	s.Require().True(ok)
	s.Equal(model.ScopeOthers, env.Scope)
	s.ElementsMatch([]model.SessionID{"p2", "p3"}, env.Recipients)
	s.Equal(model.StrokePayload(raw), env.Payload)
}

func (s *ControllerSuite) TestStrokeRejectsOtherTypes() {
	s.join("p1", "ABCD")

	err := s.controller.RelayStroke(s.ctx, "p1", "ABCD", model.EventChatMessage, nil)
	s.ErrorIs(err, model.ErrMalformedPayload)
}

func (s *ControllerSuite) TestClientClearCanvas() {
	s.join("p1", "ABCD")
	s.join("p2", "ABCD")
	s.events.Reset()

	s.Require().NoError(s.controller.ClearCanvas(s.ctx, "p1", ""))

	env, ok := s.events.Last(model.EventClientClearCanvas)
	s.Require().True(ok)
	s.Equal([]model.SessionID{"p2"}, env.Recipients)
}

func (s *ControllerSuite) TestSnapshotRoundTrip() {
	s.startDrawing()
	s.join("p3", "ABCD")
	s.events.Reset()

	s.Require().NoError(s.controller.RequestSnapshot(s.ctx, "p3", "ABCD"))

	req, ok := s.events.Last(model.EventRequestCanvasSnapshotToDrawer)
	s.Require().True(ok)
	s.Equal([]model.SessionID{"p1"}, req.Recipients)
	s.Equal(model.SnapshotRequestPayload{RequesterID: "p3"}, req.Payload)

	s.Require().NoError(s.controller.DeliverSnapshot(s.ctx, "p1", "ABCD", "p3", "data:image/png;base64,AAA"))

	snap, ok := s.events.Last(model.EventCanvasSnapshot)
	s.Require().True(ok)
	s.Equal(model.ScopeDirect, snap.Scope)
	s.Equal([]model.SessionID{"p3"}, snap.Recipients)
	s.Equal("data:image/png;base64,AAA", snap.Payload.(model.CanvasSnapshotPayload).ImageData)

	// The request is used up
	err := s.controller.DeliverSnapshot(s.ctx, "p1", "ABCD", "p3", "data:image/png;base64,BBB")
	s.ErrorIs(err, model.ErrSnapshotNotRequested)
}

func (s *ControllerSuite) TestSnapshotFromNonDrawerRejected() {
	s.startDrawing()
	s.join("p3", "ABCD")
	s.Require().NoError(s.controller.RequestSnapshot(s.ctx, "p3", "ABCD"))
	s.events.Reset()

	err := s.controller.DeliverSnapshot(s.ctx, "p2", "ABCD", "p3", "data:image/png;base64,AAA")
	s.ErrorIs(err, model.ErrNotDrawer)
	s.Empty(s.events.OfType(model.EventCanvasSnapshot))
}

func (s *ControllerSuite) TestUnrequestedSnapshotRejected() {
	s.startDrawing()
	s.events.Reset()

	err := s.controller.DeliverSnapshot(s.ctx, "p1", "ABCD", "p2", "data:image/png;base64,AAA")
	s.ErrorIs(err, model.ErrSnapshotNotRequested)
	s.Empty(s.events.OfType(model.EventCanvasSnapshot))
}

func (s *ControllerSuite) TestSnapshotRequestsDroppedOnDrawerChange() {
	s.startDrawing()
	s.join("p3", "ABCD")
	s.Require().NoError(s.controller.RequestSnapshot(s.ctx, "p3", "ABCD"))

	// p1 leaves mid-round so p2 takes over the drawing
	s.Require().NoError(s.controller.LeaveRoom(s.ctx, "p1"))
	s.Equal(model.SessionID("p2"), s.room("ABCD").CurrentDrawerID)

	err := s.controller.DeliverSnapshot(s.ctx, "p2", "ABCD", "p3", "data:image/png;base64,AAA")
	s.ErrorIs(err, model.ErrSnapshotNotRequested)
}

func (s *ControllerSuite) TestSnapshotWithoutDrawer() {
	s.join("p1", "ABCD")

	err := s.controller.RequestSnapshot(s.ctx, "p1", "ABCD")
	s.ErrorIs(err, model.ErrNoDrawer)
}

func (s *ControllerSuite) TestSnapshotToNonMember() {
	s.startDrawing()

	err := s.controller.DeliverSnapshot(s.ctx, "p1", "ABCD", "ghost", "data")
	s.ErrorIs(err, model.ErrNotMember)

	err = s.controller.DeliverSnapshot(s.ctx, "p1", "ABCD", "", "data")
	s.ErrorIs(err, model.ErrMalformedPayload)
}

// Inspection tests

func (s *ControllerSuite) TestListRooms() {
	s.join("p1", "WXYZ")
	s.join("p2", "ABCD")
	s.join("p3", "ABCD")
	s.Require().NoError(s.controller.StartGame(s.ctx, "p2", "ABCD", StartOptions{}))

	rooms := s.controller.ListRooms(s.ctx)
	s.Require().Len(rooms, 2)
	s.Equal(Summary{Code: "ABCD", Phase: model.PhaseChoosingWord, Round: 1, TotalRounds: 3, MemberCount: 2}, rooms[0])
	s.Equal(model.RoomCode("WXYZ"), rooms[1].Code)
}

func (s *ControllerSuite) TestGetRoomReturnsCopy() {
	s.join("p1", "ABCD")

	r := s.room("ABCD")
	r.Scores["p1"] = 5000
	r.Members = nil

	fresh := s.room("ABCD")
	s.Equal(0, fresh.Scores["p1"])
	s.Len(fresh.Members, 1)
}

func (s *ControllerSuite) TestGetRoomInvalidCode() {
	_, err := s.controller.GetRoom(s.ctx, "  ")
	s.ErrorIs(err, model.ErrInvalidRoomCode)
}
