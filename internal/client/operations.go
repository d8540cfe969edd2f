// Package client holds the request documents a front-end sends to the API
// and a small typed client that executes them.
package client

const LoginUser = `
mutation login($email: String!, $password: String!) {
  login(email: $email, password: $password) {
    token
    user {
      _id
      username
    }
  }
}
`

const AddUser = `
mutation addUser($username: String!, $email: String!, $password: String!) {
  addUser(username: $username, email: $email, password: $password) {
    token
    user {
      _id
      username
      email
      bookCount
      savedBooks {
        authors
        bookId
        image
        link
        title
        description
      }
    }
  }
}
`

const SaveBook = `
mutation saveBook($newBook: BookInput!) {
  saveBook(newBook: $newBook) {
    _id
    username
    email
    bookCount
    savedBooks {
      bookId
      authors
      description
      title
      image
      link
    }
  }
}
`

const RemoveBook = `
mutation removeBook($bookId: ID!) {
  removeBook(bookId: $bookId) {
    _id
    username
    email
    bookCount
    savedBooks {
      bookId
      authors
      description
      title
      image
      link
    }
  }
}
`

const GetMe = `
query me {
  me {
    _id
    username
    email
    bookCount
    savedBooks {
      bookId
      authors
      description
      title
      image
      link
    }
  }
}
`

// Documents lists every request document by operation name.
var Documents = map[string]string{
	"login":      LoginUser,
	"addUser":    AddUser,
	"saveBook":   SaveBook,
	"removeBook": RemoveBook,
	"me":         GetMe,
}
