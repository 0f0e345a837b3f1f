package mysql

import (
	"database/sql"

	"github.com/quillhub/quillhub-be/config"
	db2 "github.com/quillhub/quillhub-be/db"
	"github.com/upper/db/v4"
	"github.com/upper/db/v4/adapter/mysql"
)

type MySQLDB struct {
	*CommentDB
	*PostDB
	*UserDB
	sess  db.Session
	sqlDB *sql.DB
}

func GetDatabase(conf *config.Config) (db2.Database, error) {
	sqlDB, err := sql.Open("mysql", conf.DSN())
	if err != nil {
		return nil, err
	}

	sqlDB.SetMaxIdleConns(50)
	sqlDB.SetMaxOpenConns(50)
	sqlDB.SetConnMaxIdleTime(0)

	sess, err := mysql.New(sqlDB)
	if err != nil {
		return nil, err
	}

	return &MySQLDB{
		CommentDB: getCommentDB(sess),
		PostDB:    getPostDB(sess),
		UserDB:    getUserDB(sess),
		sess:      sess,
		sqlDB:     sqlDB,
	}, nil
}

func (mdb *MySQLDB) GetSQLDB() *sql.DB {
	return mdb.sqlDB
}

func (mdb *MySQLDB) Close() error {
	return mdb.sess.Close()
}
