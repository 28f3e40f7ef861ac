package httpapi

import (
	"encoding/xml"
	"net/http"
	"strconv"

	"github.com/ludwingperezt/mobileappws/internal/auth"
	"github.com/ludwingperezt/mobileappws/internal/users"
)

const (
	opDelete               = "DELETE"
	opVerifyEmail          = "VERIFY_EMAIL"
	opRequestPasswordReset = "REQUEST_PASSWORD_RESET"
	opPasswordReset        = "PASSWORD_RESET"

	resultSuccess = "SUCCESS"
	resultError   = "ERROR"
)

type addressRequest struct {
	City       string `json:"city" xml:"city"`
	Country    string `json:"country" xml:"country"`
	StreetName string `json:"streetName" xml:"streetName"`
	PostalCode string `json:"postalCode" xml:"postalCode"`
	Type       string `json:"type" xml:"type"`
}

type userDetailsRequest struct {
	FirstName string           `json:"firstName" xml:"firstName"`
	LastName  string           `json:"lastName" xml:"lastName"`
	Email     string           `json:"email" xml:"email"`
	Password  string           `json:"password" xml:"password"`
	Addresses []addressRequest `json:"addresses" xml:"addresses>address"`
}

type passwordResetRequest struct {
	Email string `json:"email" xml:"email"`
}

type passwordResetModel struct {
	Token    string `json:"token" xml:"token"`
	Password string `json:"password" xml:"password"`
}

type linkRest struct {
	Rel  string `json:"rel" xml:"rel,attr"`
	Href string `json:"href" xml:"href,attr"`
}

type addressRest struct {
	XMLName    xml.Name   `json:"-" xml:"address"`
	AddressID  string     `json:"addressId" xml:"addressId"`
	City       string     `json:"city" xml:"city"`
	Country    string     `json:"country" xml:"country"`
	StreetName string     `json:"streetName" xml:"streetName"`
	PostalCode string     `json:"postalCode" xml:"postalCode"`
	Type       string     `json:"type" xml:"type"`
	Links      []linkRest `json:"links,omitempty" xml:"links>link,omitempty"`
}

type userRest struct {
	XMLName   xml.Name      `json:"-" xml:"user"`
	UserID    string        `json:"userId" xml:"userId"`
	FirstName string        `json:"firstName" xml:"firstName"`
	LastName  string        `json:"lastName" xml:"lastName"`
	Email     string        `json:"email" xml:"email"`
	Addresses []addressRest `json:"addresses,omitempty" xml:"addresses>address,omitempty"`
}

// userList is a JSON array, or <users><user/>...</users> in XML.
type userList []userRest

func (l userList) MarshalXML(e *xml.Encoder, start xml.StartElement) error {
	return e.EncodeElement(struct {
		Users []userRest `xml:"user"`
	}{l}, xml.StartElement{Name: xml.Name{Local: "users"}})
}

type addressList []addressRest

func (l addressList) MarshalXML(e *xml.Encoder, start xml.StartElement) error {
	return e.EncodeElement(struct {
		Addresses []addressRest `xml:"address"`
	}{l}, xml.StartElement{Name: xml.Name{Local: "addresses"}})
}

type operationStatus struct {
	XMLName         xml.Name `json:"-" xml:"OperationStatusModel"`
	OperationName   string   `json:"operationName" xml:"operationName"`
	OperationResult string   `json:"operationResult" xml:"operationResult"`
}

func operationResult(name string, ok bool) operationStatus {
	res := resultError
	if ok {
		res = resultSuccess
	}
	return operationStatus{OperationName: name, OperationResult: res}
}

func toUserRest(acc *auth.Account, addrs []auth.Address) userRest {
	out := userRest{
		UserID:    acc.UserID,
		FirstName: acc.FirstName,
		LastName:  acc.LastName,
		Email:     acc.Email,
	}
	for i := range addrs {
		out.Addresses = append(out.Addresses, toAddressRest(acc.UserID, &addrs[i], false))
	}
	return out
}

func toAddressRest(userID string, addr *auth.Address, links bool) addressRest {
	out := addressRest{
		AddressID:  addr.AddressID,
		City:       addr.City,
		Country:    addr.Country,
		StreetName: addr.StreetName,
		PostalCode: addr.PostalCode,
		Type:       addr.Type,
	}
	if links {
		base := "/users/" + userID
		out.Links = []linkRest{
			{Rel: "user", Href: base},
			{Rel: "addresses", Href: base + "/addresses"},
			{Rel: "self", Href: base + "/addresses/" + addr.AddressID},
		}
	}
	return out
}

func (a *API) handleSignup(w http.ResponseWriter, r *http.Request) {
	var req userDetailsRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	in := users.NewUser{
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Email:     req.Email,
		Password:  req.Password,
	}
	for _, ad := range req.Addresses {
		in.Addresses = append(in.Addresses, users.NewAddress(ad))
	}

	acc, err := a.users.Signup(r.Context(), in)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	addrs, err := a.users.Addresses(r.Context(), acc.UserID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	respond(w, r, http.StatusOK, toUserRest(acc, addrs))
}

func (a *API) handleListUsers(w http.ResponseWriter, r *http.Request) {
	page, err := queryInt(r, "page", 0)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "page must be a non-negative integer")
		return
	}
	limit, err := queryInt(r, "limit", users.DefaultPageSize)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "limit must be a non-negative integer")
		return
	}
	accounts, err := a.users.List(r.Context(), page, limit)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	out := make(userList, 0, len(accounts))
	for i := range accounts {
		out = append(out, toUserRest(&accounts[i], nil))
	}
	respond(w, r, http.StatusOK, out)
}

func (a *API) handleGetUser(w http.ResponseWriter, r *http.Request) {
	userID := r.PathValue("id")
	acc, err := a.users.Get(r.Context(), userID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	addrs, err := a.users.Addresses(r.Context(), userID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	respond(w, r, http.StatusOK, toUserRest(acc, addrs))
}

func (a *API) handleUpdateUser(w http.ResponseWriter, r *http.Request) {
	var req userDetailsRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	acc, err := a.users.Update(r.Context(), r.PathValue("id"), req.FirstName, req.LastName)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	respond(w, r, http.StatusOK, toUserRest(acc, nil))
}

func (a *API) handleDeleteUser(w http.ResponseWriter, r *http.Request) {
	if err := a.users.Delete(r.Context(), r.PathValue("id")); err != nil {
		writeServiceError(w, r, err)
		return
	}
	respond(w, r, http.StatusOK, operationResult(opDelete, true))
}

func (a *API) handleListAddresses(w http.ResponseWriter, r *http.Request) {
	userID := r.PathValue("id")
	addrs, err := a.users.Addresses(r.Context(), userID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	out := make(addressList, 0, len(addrs))
	for i := range addrs {
		out = append(out, toAddressRest(userID, &addrs[i], true))
	}
	respond(w, r, http.StatusOK, out)
}

func (a *API) handleGetAddress(w http.ResponseWriter, r *http.Request) {
	userID := r.PathValue("id")
	addr, err := a.users.Address(r.Context(), userID, r.PathValue("addressId"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	respond(w, r, http.StatusOK, toAddressRest(userID, addr, true))
}

func (a *API) handleVerifyEmail(w http.ResponseWriter, r *http.Request) {
	ok, err := a.users.VerifyEmail(r.Context(), r.URL.Query().Get("token"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	respond(w, r, http.StatusOK, operationResult(opVerifyEmail, ok))
}

func (a *API) handlePasswordResetRequest(w http.ResponseWriter, r *http.Request) {
	var req passwordResetRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	ok, err := a.users.RequestPasswordReset(r.Context(), req.Email)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	respond(w, r, http.StatusOK, operationResult(opRequestPasswordReset, ok))
}

func (a *API) handlePasswordReset(w http.ResponseWriter, r *http.Request) {
	var req passwordResetModel
	if err := decodeBody(r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	ok, err := a.users.ResetPassword(r.Context(), req.Token, req.Password)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	respond(w, r, http.StatusOK, operationResult(opPasswordReset, ok))
}

func queryInt(r *http.Request, key string, def int) (int, error) {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return def, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 0 {
		return 0, strconv.ErrSyntax
	}
	return v, nil
}
