package handlers

import (
	"bytes"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/pushtisonawala/chat-app/internal/mocks"
	"github.com/pushtisonawala/chat-app/internal/models"
	"github.com/pushtisonawala/chat-app/internal/repositories"
)

func setupGroupRouter(handler *GroupHandler) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(func(c *gin.Context) {
		c.Set("userID", 1)
		c.Next()
	})
	r.POST("/groups", handler.CreateGroup)
	r.GET("/groups", handler.ListGroups)
	r.GET("/groups/:group_id", handler.GetGroup)
	r.POST("/groups/:group_id/members", handler.AddMember)
	r.GET("/groups/:group_id/messages", handler.GetGroupMessages)
	r.POST("/groups/:group_id/messages", handler.PostGroupMessage)
	return r
}

func newGroupHandler(groups *mocks.GroupRepositoryMock, messages *mocks.MessageRepositoryMock, dispatcher *mocks.DispatcherMock, assistant *mocks.MentionHandlerMock) *GroupHandler {
	var d Dispatcher
	if dispatcher != nil {
		d = dispatcher
	}
	var a MentionHandler
	if assistant != nil {
		a = assistant
	}
	return NewGroupHandler(groups, messages, d, a, nil)
}

func TestCreateGroupSuccess(t *testing.T) {
	groupRepo := new(mocks.GroupRepositoryMock)
	handler := newGroupHandler(groupRepo, new(mocks.MessageRepositoryMock), nil, nil)
	router := setupGroupRouter(handler)

	groupRepo.On("CreateGroup", mock.Anything, 1, "team", []int{2, 3}).
		Return(models.Group{ID: 7, Name: "team", AdminID: 1}, nil).Once()

	req := httptest.NewRequest(http.MethodPost, "/groups", bytes.NewBufferString(`{"name":"team","member_ids":[2,3]}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code)
	groupRepo.AssertExpectations(t)
}

func TestCreateGroupInvalidBody(t *testing.T) {
	handler := newGroupHandler(new(mocks.GroupRepositoryMock), new(mocks.MessageRepositoryMock), nil, nil)
	router := setupGroupRouter(handler)

	req := httptest.NewRequest(http.MethodPost, "/groups", bytes.NewBufferString(`{"name":5}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestListGroups(t *testing.T) {
	groupRepo := new(mocks.GroupRepositoryMock)
	handler := newGroupHandler(groupRepo, new(mocks.MessageRepositoryMock), nil, nil)
	router := setupGroupRouter(handler)

	groupRepo.On("ListGroups", mock.Anything).
		Return([]models.Group{{ID: 7, Name: "team"}}, nil).Once()

	req := httptest.NewRequest(http.MethodGet, "/groups", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "team")
}

func TestGetGroupNotFound(t *testing.T) {
	groupRepo := new(mocks.GroupRepositoryMock)
	handler := newGroupHandler(groupRepo, new(mocks.MessageRepositoryMock), nil, nil)
	router := setupGroupRouter(handler)

	groupRepo.On("GetGroup", mock.Anything, 99).
		Return(nil, repositories.ErrGroupNotFound).Once()

	req := httptest.NewRequest(http.MethodGet, "/groups/99", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestAddMemberSuccess(t *testing.T) {
	groupRepo := new(mocks.GroupRepositoryMock)
	handler := newGroupHandler(groupRepo, new(mocks.MessageRepositoryMock), nil, nil)
	router := setupGroupRouter(handler)

	groupRepo.On("AddMember", mock.Anything, 7, 4).Return(nil).Once()

	req := httptest.NewRequest(http.MethodPost, "/groups/7/members", bytes.NewBufferString(`{"user_id":4}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusNoContent, rec.Code)
	groupRepo.AssertExpectations(t)
}

func TestGetGroupMessagesRequiresMembership(t *testing.T) {
	groupRepo := new(mocks.GroupRepositoryMock)
	messageRepo := new(mocks.MessageRepositoryMock)
	handler := newGroupHandler(groupRepo, messageRepo, nil, nil)
	router := setupGroupRouter(handler)

	groupRepo.On("IsMember", mock.Anything, 7, 1).Return(false, nil).Once()

	req := httptest.NewRequest(http.MethodGet, "/groups/7/messages", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusForbidden, rec.Code)
	messageRepo.AssertNotCalled(t, "ListGroupMessages", mock.Anything, mock.Anything)
}

func TestGetGroupMessagesSuccess(t *testing.T) {
	groupRepo := new(mocks.GroupRepositoryMock)
	messageRepo := new(mocks.MessageRepositoryMock)
	handler := newGroupHandler(groupRepo, messageRepo, nil, nil)
	router := setupGroupRouter(handler)

	sender := 2
	group := 7
	groupRepo.On("IsMember", mock.Anything, 7, 1).Return(true, nil).Once()
	messageRepo.On("ListGroupMessages", mock.Anything, 7).
		Return([]models.Message{{ID: 3, SenderID: &sender, GroupID: &group, Text: "yo", IsGroupMessage: true}}, nil).Once()

	req := httptest.NewRequest(http.MethodGet, "/groups/7/messages", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	messageRepo.AssertExpectations(t)
}

func TestPostGroupMessageSuccess(t *testing.T) {
	groupRepo := new(mocks.GroupRepositoryMock)
	messageRepo := new(mocks.MessageRepositoryMock)
	dispatcher := new(mocks.DispatcherMock)
	assistant := new(mocks.MentionHandlerMock)
	handler := newGroupHandler(groupRepo, messageRepo, dispatcher, assistant)
	router := setupGroupRouter(handler)

	sender := 1
	group := 7
	saved := models.Message{ID: 3, SenderID: &sender, GroupID: &group, Text: "hey", IsGroupMessage: true}

	groupRepo.On("IsMember", mock.Anything, 7, 1).Return(true, nil).Once()
	messageRepo.On("CreateGroupMessage", mock.Anything, 1, 7, "hey", false).Return(saved, nil).Once()
	dispatcher.On("DispatchGroup", saved).Once()
	assistant.On("HandleMention", saved).Return(false).Once()

	req := httptest.NewRequest(http.MethodPost, "/groups/7/messages", bytes.NewBufferString(`{"text":"hey"}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code)
	dispatcher.AssertExpectations(t)
	assistant.AssertExpectations(t)
}

func TestPostGroupMessageWithMentionFlagsAndForwards(t *testing.T) {
	groupRepo := new(mocks.GroupRepositoryMock)
	messageRepo := new(mocks.MessageRepositoryMock)
	dispatcher := new(mocks.DispatcherMock)
	assistant := new(mocks.MentionHandlerMock)
	handler := newGroupHandler(groupRepo, messageRepo, dispatcher, assistant)
	router := setupGroupRouter(handler)

	sender := 1
	group := 7
	saved := models.Message{ID: 3, SenderID: &sender, GroupID: &group, Text: "@gemini hey", IsGroupMessage: true, MentionedAI: true}

	groupRepo.On("IsMember", mock.Anything, 7, 1).Return(true, nil).Once()
	messageRepo.On("CreateGroupMessage", mock.Anything, 1, 7, "@gemini hey", true).Return(saved, nil).Once()
	dispatcher.On("DispatchGroup", saved).Once()
	assistant.On("HandleMention", saved).Return(true).Once()

	req := httptest.NewRequest(http.MethodPost, "/groups/7/messages", bytes.NewBufferString(`{"text":"@gemini hey"}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code)
	messageRepo.AssertExpectations(t)
	assistant.AssertExpectations(t)
}

func TestPostGroupMessageNonMember(t *testing.T) {
	groupRepo := new(mocks.GroupRepositoryMock)
	messageRepo := new(mocks.MessageRepositoryMock)
	dispatcher := new(mocks.DispatcherMock)
	handler := newGroupHandler(groupRepo, messageRepo, dispatcher, nil)
	router := setupGroupRouter(handler)

	groupRepo.On("IsMember", mock.Anything, 7, 1).Return(false, nil).Once()

	req := httptest.NewRequest(http.MethodPost, "/groups/7/messages", bytes.NewBufferString(`{"text":"hey"}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusForbidden, rec.Code)
	messageRepo.AssertNotCalled(t, "CreateGroupMessage", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestPostGroupMessagePersistFailureSkipsDispatch(t *testing.T) {
	groupRepo := new(mocks.GroupRepositoryMock)
	messageRepo := new(mocks.MessageRepositoryMock)
	dispatcher := new(mocks.DispatcherMock)
	assistant := new(mocks.MentionHandlerMock)
	handler := newGroupHandler(groupRepo, messageRepo, dispatcher, assistant)
	router := setupGroupRouter(handler)

	groupRepo.On("IsMember", mock.Anything, 7, 1).Return(true, nil).Once()
	messageRepo.On("CreateGroupMessage", mock.Anything, 1, 7, "hey", false).
		Return(nil, errors.New("db down")).Once()

	req := httptest.NewRequest(http.MethodPost, "/groups/7/messages", bytes.NewBufferString(`{"text":"hey"}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusInternalServerError, rec.Code)
	dispatcher.AssertNotCalled(t, "DispatchGroup", mock.Anything)
	assistant.AssertNotCalled(t, "HandleMention", mock.Anything)
}

func TestPostGroupMessageInvalidGroupID(t *testing.T) {
	handler := newGroupHandler(new(mocks.GroupRepositoryMock), new(mocks.MessageRepositoryMock), nil, nil)
	router := setupGroupRouter(handler)

	req := httptest.NewRequest(http.MethodPost, "/groups/abc/messages", bytes.NewBufferString(`{"text":"hey"}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
}
