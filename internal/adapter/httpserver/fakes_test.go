package httpserver

import (
	"github.com/fairyhunter13/cv-assistant/internal/domain"
	"github.com/fairyhunter13/cv-assistant/internal/usecase"
)

type fakeChat struct {
	reply domain.ChatReply
	err   error
	got   usecase.ChatRequest
}

func (f *fakeChat) Reply(_ domain.Context, req usecase.ChatRequest) (domain.ChatReply, error) {
	f.got = req
	return f.reply, f.err
}

type fakeDocs struct {
	gen    usecase.GeneratedDocument
	doc    domain.Document
	err    error
	gotSID string
	gotT   domain.DocumentType
}

func (f *fakeDocs) Generate(_ domain.Context, sessionID string, t domain.DocumentType) (usecase.GeneratedDocument, error) {
	f.gotSID, f.gotT = sessionID, t
	return f.gen, f.err
}

func (f *fakeDocs) Fetch(_ domain.Context, _ string) (domain.Document, error) {
	return f.doc, f.err
}

type fakeSessions struct {
	sess      domain.Session
	err       error
	deleted   string
	gotStatus domain.SessionStatus
}

func (f *fakeSessions) Get(_ domain.Context, _ string) (domain.Session, error) { return f.sess, f.err }

func (f *fakeSessions) MarkStatus(_ domain.Context, _ string, st domain.SessionStatus) error {
	f.gotStatus = st
	return f.err
}

func (f *fakeSessions) Delete(_ domain.Context, id string) error {
	f.deleted = id
	return f.err
}
